// Package sqlite implements the warehouse on SQLite through database/sql and
// the pure-Go modernc.org/sqlite driver. SQLite has no TRUNCATE, so a reset
// deletes every row and clears the AUTOINCREMENT counters kept in
// sqlite_sequence.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/ddl"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage/sqldb"
)

// Kind is the storage kind served by this package.
const Kind = "sqlite"

// maxParams matches SQLITE_MAX_VARIABLE_NUMBER of the bundled SQLite.
const maxParams = 32766

// Dialect returns the SQLite flavour of the database/sql repository.
func Dialect() sqldb.Dialect {
	return sqldb.Dialect{
		Kind:        Kind,
		Types:       ddl.TypeMap{"int": "INTEGER", "text": "TEXT"},
		Guard:       ddl.IfNotExists,
		Placeholder: sqldb.QuestionMark,
		Quote:       sqldb.DoubleQuote,
		MaxParams:   maxParams,
		Reset:       reset,
	}
}

func reset(ctx context.Context, tx *sql.Tx, tables []string) ([]string, error) {
	stmts := sqldb.DeleteAll(sqldb.DoubleQuote, tables)

	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'sqlite_sequence'").Scan(&n)
	if err != nil {
		return nil, errors.Wrap(err, "probe sqlite_sequence")
	}
	if n > 0 && len(tables) > 0 {
		quoted := make([]string, len(tables))
		for i, t := range tables {
			quoted[i] = "'" + strings.ReplaceAll(t, "'", "''") + "'"
		}
		stmts = append(stmts, "DELETE FROM sqlite_sequence WHERE name IN ("+strings.Join(quoted, ", ")+")")
	}
	return stmts, nil
}

// DSN returns cfg.DSN, or the database file path when no DSN is set.
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return cfg.Database
}

// Open opens a SQLite database. The pool is pinned to one connection: SQLite
// allows a single writer, and ":memory:" databases are per connection.
func Open(dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewRepository opens the database and checks it answers.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	db, err := Open(DSN(cfg))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "sqlite: ping")
	}
	return sqldb.New(db, Dialect(), cfg), nil
}
