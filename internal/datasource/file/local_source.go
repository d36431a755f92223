// Package file implements the local filesystem inputs of a run: existence
// checks, opening, and content fingerprints.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	"salesetl/internal/datasource"
)

var _ datasource.Source = (*Local)(nil)

// ErrMissingInput is returned (wrapped) by Verify when an input path does not
// exist or is not a regular file.
var ErrMissingInput = errors.New("input file not found")

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided filesystem
// path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// If ctx is already done, Open returns the context error without touching
// the filesystem. Filesystem errors are wrapped with the path and still
// match errors.Is(err, os.ErrNotExist).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Verify checks that every path names an existing regular file. It stops at
// the first missing path and returns an error that names it and matches both
// ErrMissingInput and os.ErrNotExist.
func Verify(paths ...string) error {
	for _, p := range paths {
		fi, err := os.Stat(p)
		switch {
		case err != nil && errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("%w: %s: %w", ErrMissingInput, p, os.ErrNotExist)
		case err != nil:
			return fmt.Errorf("stat %s: %w", p, err)
		case fi.IsDir():
			return fmt.Errorf("%w: %s is a directory: %w", ErrMissingInput, p, os.ErrNotExist)
		}
	}
	return nil
}

// Digest returns the xxh3 hash of the file contents at path. It is used to
// fingerprint the inputs of a run in the logs.
func Digest(ctx context.Context, path string) (uint64, error) {
	rc, err := NewLocal(path).Open(ctx)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	h := xxh3.New()
	if _, err := io.Copy(h, rc); err != nil {
		return 0, fmt.Errorf("digest %s: %w", path, err)
	}
	return h.Sum64(), nil
}
