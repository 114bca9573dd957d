// Package postgres implements the warehouse on PostgreSQL using pgx v5.
// Loads use COPY inside one transaction per table, and the reset is a single
// TRUNCATE ... RESTART IDENTITY CASCADE.
package postgres

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/ddl"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// Kind is the storage kind served by this package.
const Kind = "postgres"

const defaultPort = 5432

// Types maps contract types to Postgres column types.
var Types = ddl.TypeMap{"int": "BIGINT", "text": "TEXT"}

// pool is the subset of *pgxpool.Pool the repository uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool   pool
	cfg    storage.Config
	logger log.Logger
}

var _ storage.Repository = (*Repository)(nil)

// DSN returns cfg.DSN or builds a postgres:// URL from the connection fields.
func DSN(cfg storage.Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	q := url.Values{}
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     cfg.Addr(defaultPort),
		Path:     "/" + cfg.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// NewRepository parses the DSN and creates the pool. pgxpool connects
// lazily, so an unreachable server is reported by Ping, not here.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	pc, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool: parse config")
	}
	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errors.Wrap(err, "pgxpool")
	}
	return newWithPool(p, cfg), nil
}

func newWithPool(p pool, cfg storage.Config) *Repository {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Repository{pool: p, cfg: cfg, logger: log.With(logger, "backend", Kind)}
}

// Kind implements storage.Repository.
func (r *Repository) Kind() string { return Kind }

// Ping implements storage.Repository.
func (r *Repository) Ping(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "SELECT 1"); err != nil {
		return errors.Wrap(err, "postgres: ping")
	}
	return nil
}

// EnsureSchema implements storage.Repository.
func (r *Repository) EnsureSchema(ctx context.Context, entities []schema.Entity) error {
	stmts, err := ddl.ContractTables(entities, Types, ddl.IfNotExists)
	if err != nil {
		return err
	}
	for i, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return errors.Wrapf(pgDetail(err), "postgres: create table %s", entities[i].Table)
		}
	}
	return nil
}

// Reset implements storage.Repository.
func (r *Repository) Reset(ctx context.Context, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := "TRUNCATE TABLE " + strings.Join(mapIdent(tables), ", ") + " RESTART IDENTITY CASCADE"
	return r.inTx(ctx, "reset", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, stmt)
		return err
	})
}

// Load implements storage.Repository.
func (r *Repository) Load(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	var total int64
	err := r.inTx(ctx, "load "+table, func(tx pgx.Tx) error {
		copyFn := func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			n, err := tx.CopyFrom(ctx, splitFQN(table), columns, pgx.CopyFromRows(batch))
			if err != nil {
				return n, err
			}
			if r.cfg.OnBatch != nil {
				r.cfg.OnBatch(table, n)
			}
			return n, nil
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

// ApplyViews implements storage.Repository.
func (r *Repository) ApplyViews(ctx context.Context, stmts []string) error {
	return r.inTx(ctx, "views", func(tx pgx.Tx) error {
		for _, s := range stmts {
			if _, err := tx.Exec(ctx, s); err != nil {
				return errors.Wrapf(err, "exec %q", s)
			}
		}
		return nil
	})
}

// Query implements storage.Repository.
func (r *Repository) Query(ctx context.Context, sql string) (storage.Result, error) {
	rows, err := r.pool.Query(ctx, sql)
	if err != nil {
		return storage.Result{}, errors.Wrap(err, "postgres: query")
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	res := storage.Result{Columns: make([]string, len(fds))}
	for i, fd := range fds {
		res.Columns[i] = fd.Name
	}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return storage.Result{}, errors.Wrap(err, "postgres: values")
		}
		for i, v := range vals {
			vals[i] = normalize(v)
		}
		res.Rows = append(res.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return storage.Result{}, errors.Wrap(err, "postgres: rows")
	}
	return res, nil
}

// Close implements storage.Repository.
func (r *Repository) Close() { r.pool.Close() }

func (r *Repository) inTx(ctx context.Context, what string, fn func(pgx.Tx) error) error {
	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrapf(err, "postgres: %s: begin", what)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return errors.Wrapf(pgDetail(err), "postgres: %s", what)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Wrapf(err, "postgres: %s: commit", what)
	}
	level.Debug(r.logger).Log("msg", "transaction committed", "op", what, "took", time.Since(start))
	return nil
}

// pgDetail surfaces the server's detail and SQLSTATE, e.g. the key of a
// primary-key conflict.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return errors.Wrapf(err, "%s (%s)", pgErr.Detail, pgErr.SQLState())
	}
	return err
}

// normalize maps pgx values onto int64, float64, string or nil.
func normalize(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// mapIdent maps a list of names to their quoted forms.
func mapIdent(names []string) []string {
	out := make([]string, len(names))
	for i, c := range names {
		out[i] = pgFQN(c)
	}
	return out
}

// pgFQN quotes a possibly schema-qualified name like "public.movies".
func pgFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// splitFQN converts "schema.table" into a pgx.Identifier.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
