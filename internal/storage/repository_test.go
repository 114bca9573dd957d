package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
)

// fakeRepo is a minimal Repository implementation for tests.
type fakeRepo struct {
	closed bool
}

func (f *fakeRepo) Kind() string                                        { return "fake" }
func (f *fakeRepo) Ping(context.Context) error                          { return nil }
func (f *fakeRepo) EnsureSchema(context.Context, []schema.Entity) error { return nil }
func (f *fakeRepo) Reset(context.Context, []string) error               { return nil }
func (f *fakeRepo) ApplyViews(context.Context, []string) error          { return nil }
func (f *fakeRepo) Query(context.Context, string) (Result, error)       { return Result{}, nil }
func (f *fakeRepo) Close()                                              { f.closed = true }
func (f *fakeRepo) Load(_ context.Context, _ string, _ []string, rows [][]any) (int64, error) {
	return int64(len(rows)), nil
}

// TestRegisterAndNew_Success verifies that registering a backend enables New()
// to return the corresponding repository.
func TestRegisterAndNew_Success(t *testing.T) {
	t.Parallel()

	kind := "fake"
	var gotLogger bool
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		gotLogger = cfg.Logger != nil
		return &fakeRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: kind})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if repo == nil {
		t.Fatalf("New returned nil repo")
	}
	if !gotLogger {
		t.Fatalf("New must default the logger")
	}

	found := false
	for _, k := range ListKinds() {
		if k == kind {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("registered kind %q not present in ListKinds: %v", kind, ListKinds())
	}
}

// TestNew_Unsupported verifies that unsupported kinds return ErrUnknownKind.
func TestNew_Unsupported(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "does-not-exist"})
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("want ErrUnknownKind, got %v", err)
	}
	if got, want := err.Error(), "storage.kind=does-not-exist: unsupported storage kind"; got != want {
		t.Fatalf("error = %q, want %q", got, want)
	}
}

// TestRegister_Override verifies that re-registering a kind overrides the
// previous factory.
func TestRegister_Override(t *testing.T) {
	t.Parallel()

	kind := "override"
	calls := 0

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls++
		return &fakeRepo{}, nil
	})
	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		calls += 10
		return &fakeRepo{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: kind}); err != nil {
		t.Fatalf("New error: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
}

// TestListKinds_Snapshot checks ListKinds returns a copy.
func TestListKinds_Snapshot(t *testing.T) {
	t.Parallel()

	Register("snap", func(ctx context.Context, cfg Config) (Repository, error) { return &fakeRepo{}, nil })

	a := ListKinds()
	if len(a) == 0 {
		t.Fatalf("ListKinds empty after registration")
	}
	a[0] = "mutated"

	if b := ListKinds(); reflect.DeepEqual(a, b) {
		t.Fatalf("ListKinds returned same slice; want snapshot copy")
	}
}

// TestRegister_AllowsErrors shows factories can return errors that bubble up.
func TestRegister_AllowsErrors(t *testing.T) {
	t.Parallel()

	kind := "errkind"
	want := errors.New("boom")

	Register(kind, func(ctx context.Context, cfg Config) (Repository, error) {
		return nil, want
	})

	if _, err := New(context.Background(), Config{Kind: kind}); !errors.Is(err, want) {
		t.Fatalf("want %v, got %v", want, err)
	}
}

func TestConfigAddr(t *testing.T) {
	t.Parallel()

	if got := (Config{Host: "db"}).Addr(3306); got != "db:3306" {
		t.Fatalf("Addr = %q", got)
	}
	if got := (Config{Host: "db", Port: 5433}).Addr(5432); got != "db:5433" {
		t.Fatalf("Addr = %q", got)
	}
}
