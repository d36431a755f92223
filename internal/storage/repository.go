// Package storage defines the persistence contract of a run and a small
// registry of backends.
//
// Backends live in subpackages (postgres, sqlite, mysql, mssql) and register
// a Factory for their kind in init. Callers import storage/all for side
// effects and open a repository with New, staying backend-agnostic.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"salesetl/internal/domain"
)

// Repository persists joined sales over exactly one database connection.
type Repository interface {
	// EnsureTable creates the destination table if it does not exist.
	EnsureTable(ctx context.Context) error
	// LoadSales writes rows in order inside one transaction and returns the
	// number of rows written. On error nothing is committed.
	LoadSales(ctx context.Context, rows []domain.JoinedSale) (int64, error)
	// Close releases the connection. It is safe to call more than once.
	Close() error
}

// Config is the backend-agnostic repository configuration.
type Config struct {
	// Kind selects the backend, e.g. "postgres".
	Kind string
	// DSN is the driver connection string.
	DSN string
	// Table is the destination table, optionally schema-qualified.
	Table string
	// BatchSize is the number of rows per multi-row INSERT for backends
	// without a streaming bulk path.
	BatchSize int
	// ConnectTimeout bounds opening the connection. Zero means unbounded
	// (the caller's context still applies).
	ConnectTimeout time.Duration
	// Job labels metrics emitted by the backend.
	Job string
}

// DefaultBatchSize applies when Config.BatchSize is not positive.
const DefaultBatchSize = 500

// Factory opens a Repository for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, fn Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = fn
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
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

// New opens a Repository for cfg.Kind. ConnectTimeout, when set, bounds only
// the open; the returned repository uses the caller's context afterwards.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	fn, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %s)", cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	return fn(ctx, cfg)
}
