package postgres

import (
	"context"
	"sync"

	"salesetl/internal/storage"
)

// newRepository is a test hook that points to NewRepository by default.
// Tests may replace this variable to avoid real DB connections.
var newRepository = NewRepository

// wrappedRepo adds an idempotent Close that calls the close function
// returned by NewRepository.
type wrappedRepo struct {
	*Repository
	closeFn func() error
	once    sync.Once
	err     error
}

var _ storage.Repository = (*wrappedRepo)(nil)

// Close implements storage.Repository.Close.
func (w *wrappedRepo) Close() error {
	w.once.Do(func() {
		if w.closeFn != nil {
			w.err = w.closeFn()
		}
	})
	return w.err
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, closeFn, err := newRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
		if err != nil {
			return nil, err
		}
		return &wrappedRepo{Repository: r, closeFn: closeFn}, nil
	})
}
