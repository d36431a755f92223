// Package datasource defines where raw input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream of input bytes. Callers own the returned
// ReadCloser and must close it.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
