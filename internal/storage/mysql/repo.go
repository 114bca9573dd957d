// Package mysql implements the warehouse on MySQL through database/sql and
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/ddl"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage/sqldb"
)

// Kind is the storage kind served by this package.
const Kind = "mysql"

const defaultPort = 3306

// maxParams is the prepared statement placeholder limit.
const maxParams = 65535

// Quote quotes an identifier with backticks.
func Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// Dialect returns the MySQL flavour of the database/sql repository. TRUNCATE
// commits implicitly in MySQL, so the reset deletes rows instead and stays in
// one transaction.
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Kind:        Kind,
		Types:       ddl.TypeMap{"int": "BIGINT", "text": "VARCHAR(255)"},
		Guard:       ddl.IfNotExists,
		Placeholder: sqldb.QuestionMark,
		Quote:       Quote,
		MaxParams:   maxParams,
		Reset: func(_ context.Context, _ *sql.Tx, tables []string) ([]string, error) {
			return sqldb.DeleteAll(Quote, tables), nil
		},
	}
}

// DSN returns cfg.DSN or formats one from the connection fields.
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Addr(defaultPort)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	return mc.FormatDSN()
}

// NewRepository opens the connection pool. Reachability is left to the
// readiness gate, so a server that is still starting does not fail here.
func NewRepository(_ context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	dsn := DSN(cfg)
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, errors.Wrap(err, "mysql: dsn")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "mysql: open")
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return sqldb.New(db, Dialect(), cfg), nil
}
