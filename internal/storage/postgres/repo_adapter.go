package postgres

import (
	"context"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace it to avoid real DB connections.
var newRepository = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	return NewRepository(ctx, cfg)
}

func init() {
	storage.Register(Kind, func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return newRepository(ctx, cfg)
	})
}
