// Package file implements a local filesystem-backed data source and the data
// lake directory that holds the raw CSV extracts.
package file

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the file the source reads.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// If ctx is already done, Open returns the context error without touching the
// filesystem. Filesystem errors are wrapped with the path and still match
// errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", l.path)
	}
	return f, nil
}

// Lake is the directory the extracts are dropped into.
type Lake struct{ dir string }

// NewLake returns a Lake rooted at dir.
func NewLake(dir string) *Lake { return &Lake{dir: dir} }

// Dir returns the lake root.
func (l *Lake) Dir() string { return l.dir }

// Source returns a Local source for the named file inside the lake.
func (l *Lake) Source(name string) *Local {
	return NewLocal(filepath.Join(l.dir, name))
}

// Missing lists the names that do not exist as regular files in the lake.
func (l *Lake) Missing(names ...string) []string {
	var out []string
	for _, n := range names {
		fi, err := os.Stat(filepath.Join(l.dir, n))
		if err != nil || fi.IsDir() {
			out = append(out, n)
		}
	}
	return out
}
