// Package mssql implements the warehouse on Microsoft SQL Server through
// database/sql and github.com/microsoft/go-mssqldb. Batches are loaded with
// the driver's bulk copy API inside the table's load transaction.
package mssql

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/ddl"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage/sqldb"
)

// Kind is the storage kind served by this package.
const Kind = "mssql"

const defaultPort = 1433

// Quote quotes a SQL Server identifier using [brackets], escaping ].
func Quote(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// Placeholder renders @p1, @p2, ...
func Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// Dialect returns the SQL Server flavour of the database/sql repository.
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Kind:        Kind,
		Types:       ddl.TypeMap{"int": "BIGINT", "text": "NVARCHAR(255)"},
		Guard:       ddl.ObjectIDGuard,
		Placeholder: Placeholder,
		Quote:       Quote,
		MaxParams:   2000,
		Reset: func(_ context.Context, _ *sql.Tx, tables []string) ([]string, error) {
			return sqldb.DeleteAll(Quote, tables), nil
		},
		Bulk: bulkCopy,
	}
}

// bulkCopy streams rows through a bulk copy statement prepared on tx.
func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, errors.Wrap(err, "prepare bulk")
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, errors.Wrapf(err, "bulk row %d", i)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, errors.Wrap(err, "bulk finalize")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// DSN returns cfg.DSN or builds a sqlserver:// URL from the connection fields.
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Addr(defaultPort),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewRepository validates the DSN and opens the pool. Reachability is left
// to the readiness gate.
func NewRepository(_ context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	dsn := DSN(cfg)
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, errors.Wrap(err, "mssql dsn")
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "mssql: open")
	}
	return sqldb.New(db, Dialect(), cfg), nil
}
