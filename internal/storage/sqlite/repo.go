// Package sqlite implements a SQLite-backed storage.Repository using
// database/sql. SQLite has no bulk-load API like Postgres COPY, so rows go
// in as multi-row INSERTs inside one transaction on a single connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"salesetl/internal/domain"
	"salesetl/internal/storage"
	sqliteddl "salesetl/internal/storage/sqlite/ddl"
)

// maxParams is SQLITE_MAX_VARIABLE_NUMBER for the bundled library.
const maxParams = 32766

// Config holds SQLite repository configuration derived from storage.Config.
type Config struct {
	// DSN is a SQLite connection string or file path, e.g.:
	//   "file:sales.db?_pragma=busy_timeout(5000)"
	//   "sales.db" (interpreted by the driver)
	DSN string

	// Table is the destination table. A "main." prefix is accepted.
	Table string

	// BatchSize is the number of rows per INSERT statement.
	BatchSize int

	// Job labels batch metrics.
	Job string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a single SQLite connection using the provided DSN and
// returns a Repository plus a close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	db, err := storage.OpenSingle(ctx, "sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return newWithDB(db, cfg), db.Close, nil
}

func newWithDB(db *sql.DB, cfg Config) *Repository {
	cfg.BatchSize = clampBatch(cfg.BatchSize, len(storage.SalesColumns))
	return &Repository{db: db, cfg: cfg}
}

// clampBatch keeps one statement under the bind-parameter ceiling.
func clampBatch(size, ncol int) int {
	if size <= 0 {
		size = storage.DefaultBatchSize
	}
	if limit := maxParams / ncol; size > limit {
		return limit
	}
	return size
}

// EnsureTable creates the destination table if absent.
func (r *Repository) EnsureTable(ctx context.Context) error {
	stmt, err := sqliteddl.BuildCreateTableSQL(storage.SalesTable(r.cfg.Table))
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", r.cfg.Table, err)
	}
	return nil
}

// LoadSales inserts rows in batches inside one transaction.
func (r *Repository) LoadSales(ctx context.Context, rows []domain.JoinedSale) (int64, error) {
	vals, err := storage.SalesRows(rows, storage.Encoder{Date: storage.DateOnly})
	if err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}
	spec := storage.InsertSpec{
		Table:     sqliteddl.QuoteFQN(r.cfg.Table),
		Columns:   quoteAll(storage.SalesColumns),
		BatchSize: r.cfg.BatchSize,
		Job:       r.cfg.Job,
	}

	var n int64
	err = storage.InTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		n, err = storage.InsertBatches(ctx, tx, spec, vals)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}
	return n, nil
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = sqliteddl.QuoteFQN(c)
	}
	return out
}
