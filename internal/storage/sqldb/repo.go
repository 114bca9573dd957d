// Package sqldb implements storage.Repository over database/sql. Dialect
// packages (sqlite, mysql, mssql) open the *sql.DB and supply a Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/ddl"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// Repository is a database/sql backed storage.Repository.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	cfg     storage.Config
	logger  log.Logger
}

var _ storage.Repository = (*Repository)(nil)

// New wraps an open database handle.
func New(db *sql.DB, d Dialect, cfg storage.Config) *Repository {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Repository{db: db, dialect: d, cfg: cfg, logger: log.With(logger, "backend", d.Kind)}
}

// Kind implements storage.Repository.
func (r *Repository) Kind() string { return r.dialect.Kind }

// Ping implements storage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return errors.Wrapf(err, "%s: ping", r.dialect.Kind)
	}
	return nil
}

// EnsureSchema implements storage.Repository.
func (r *Repository) EnsureSchema(ctx context.Context, entities []schema.Entity) error {
	stmts, err := ddl.ContractTables(entities, r.dialect.Types, r.dialect.Guard)
	if err != nil {
		return err
	}
	for i, s := range stmts {
		if _, err := r.db.ExecContext(ctx, s); err != nil {
			return errors.Wrapf(err, "%s: create table %s", r.dialect.Kind, entities[i].Table)
		}
	}
	return nil
}

// Reset implements storage.Repository.
func (r *Repository) Reset(ctx context.Context, tables []string) error {
	return r.inTx(ctx, "reset", func(tx *sql.Tx) error {
		stmts, err := r.dialect.Reset(ctx, tx, tables)
		if err != nil {
			return err
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return errors.Wrapf(err, "exec %q", s)
			}
		}
		return nil
	})
}

// Load implements storage.Repository.
func (r *Repository) Load(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, errors.Errorf("%s: load %s: columns must not be empty", r.dialect.Kind, table)
	}
	var total int64
	err := r.inTx(ctx, "load "+table, func(tx *sql.Tx) error {
		copyFn := func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			n, err := r.insertBatch(ctx, tx, table, columns, batch)
			if err == nil && r.cfg.OnBatch != nil {
				r.cfg.OnBatch(table, n)
			}
			return n, err
		}
		n, err := storage.Stream(ctx, r.logger, columns, rows, storage.BatchSize(r.cfg.BatchSize, storage.DefaultBatchSize), copyFn)
		total = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *Repository) insertBatch(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if r.dialect.Bulk != nil {
		return r.dialect.Bulk(ctx, tx, table, columns, rows)
	}
	per := r.dialect.rowsPerStatement(len(columns))
	var inserted int64
	for start := 0; start < len(rows); start += per {
		end := start + per
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]
		args := make([]any, 0, len(chunk)*len(columns))
		for _, row := range chunk {
			if len(row) != len(columns) {
				return inserted, errors.Errorf("row length %d != columns length %d", len(row), len(columns))
			}
			args = append(args, row...)
		}
		if _, err := tx.ExecContext(ctx, r.dialect.insertSQL(table, columns, len(chunk)), args...); err != nil {
			return inserted, errors.Wrapf(err, "insert into %s", table)
		}
		inserted += int64(len(chunk))
	}
	return inserted, nil
}

// ApplyViews implements storage.Repository.
func (r *Repository) ApplyViews(ctx context.Context, stmts []string) error {
	return r.inTx(ctx, "views", func(tx *sql.Tx) error {
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s); err != nil {
				return errors.Wrapf(err, "exec %q", s)
			}
		}
		return nil
	})
}

// Query implements storage.Repository.
func (r *Repository) Query(ctx context.Context, query string) (storage.Result, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return storage.Result{}, errors.Wrapf(err, "%s: query", r.dialect.Kind)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return storage.Result{}, errors.Wrap(err, "columns")
	}
	dbTypes := make([]string, len(cols))
	if cts, err := rows.ColumnTypes(); err == nil {
		for i, ct := range cts {
			dbTypes[i] = ct.DatabaseTypeName()
		}
	}
	res := storage.Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return storage.Result{}, errors.Wrap(err, "scan")
		}
		for i, v := range vals {
			vals[i] = normalize(v, dbTypes[i])
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return storage.Result{}, errors.Wrap(err, "rows")
	}
	return res, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() { _ = r.db.Close() }

func (r *Repository) inTx(ctx context.Context, what string, fn func(*sql.Tx) error) error {
	start := time.Now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "%s: %s: begin", r.dialect.Kind, what)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "%s: %s", r.dialect.Kind, what)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "%s: %s: commit", r.dialect.Kind, what)
	}
	level.Debug(r.logger).Log("msg", "transaction committed", "op", what, "took", time.Since(start))
	return nil
}
