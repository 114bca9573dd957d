// Package datasource abstracts where raw input files come from.
package datasource

import (
	"context"
	"io"
)

// Source opens one raw input for reading.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
