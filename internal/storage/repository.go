// Package storage defines the warehouse contract shared by every backend and
// a small registry that lets callers open a backend by kind.
package storage

import (
	"context"
	"net"
	"sort"
	"strconv"
	"sync"

	"github.com/go-kit/log"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
)

// ErrUnknownKind is returned by New for a kind no backend registered.
var ErrUnknownKind = errors.New("unsupported storage kind")

// Config is the backend-agnostic connection configuration.
type Config struct {
	Kind string

	Host     string
	Port     int
	User     string
	Password string
	Database string // file path for sqlite
	SSLMode  string

	// DSN, when set, overrides the fields above.
	DSN string

	// BatchSize is the number of rows per COPY/INSERT batch.
	BatchSize int

	Logger log.Logger

	// OnBatch, if set, is called after every flushed batch.
	OnBatch func(table string, rows int64)
}

// Addr joins Host and Port, substituting defPort when Port is unset.
func (c Config) Addr(defPort int) string {
	port := c.Port
	if port == 0 {
		port = defPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Result is a materialized query result. Values are normalized to int64,
// float64, string, or nil.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Repository is the warehouse as seen by the pipeline.
type Repository interface {
	// Kind names the backend ("postgres", "sqlite", ...).
	Kind() string

	// Ping runs SELECT 1.
	Ping(ctx context.Context) error

	// EnsureSchema creates the entity tables that do not exist yet.
	EnsureSchema(ctx context.Context, entities []schema.Entity) error

	// Reset empties tables in one transaction and resets identity counters.
	Reset(ctx context.Context, tables []string) error

	// Load appends rows to table inside one transaction and returns the
	// number written.
	Load(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)

	// ApplyViews executes view definitions in one transaction.
	ApplyViews(ctx context.Context, stmts []string) error

	// Query runs a read-only statement.
	Query(ctx context.Context, sql string) (Result, error)

	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. Registering the same kind
// again replaces the previous factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownKind, "storage.kind=%s", cfg.Kind)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
