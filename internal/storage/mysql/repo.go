// Package mysql provides a MySQL-backed storage.Repository implementation.
// Rows are written with multi-row INSERTs inside one transaction.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	drv "github.com/go-sql-driver/mysql" // registers the "mysql" driver

	"salesetl/internal/domain"
	"salesetl/internal/storage"
	myddl "salesetl/internal/storage/mysql/ddl"
)

// maxParams is the protocol limit on placeholders per prepared statement.
const maxParams = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN       string // go-sql-driver DSN, e.g. "user:pw@tcp(host:3306)/db"
	Table     string
	BatchSize int
	Job       string
}

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a single MySQL connection.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	db, err := storage.OpenSingle(ctx, "mysql", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return newWithDB(db, cfg), db.Close, nil
}

func newWithDB(db *sql.DB, cfg Config) *Repository {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = storage.DefaultBatchSize
	}
	if limit := maxParams / len(storage.SalesColumns); cfg.BatchSize > limit {
		cfg.BatchSize = limit
	}
	return &Repository{db: db, cfg: cfg}
}

// EnsureTable creates the destination table if absent.
func (r *Repository) EnsureTable(ctx context.Context) error {
	stmt, err := myddl.BuildCreateTableSQL(storage.SalesTable(r.cfg.Table))
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mysql: create table %s: %w", r.cfg.Table, describe(err))
	}
	return nil
}

// LoadSales inserts rows in batches inside one transaction.
func (r *Repository) LoadSales(ctx context.Context, rows []domain.JoinedSale) (int64, error) {
	vals, err := storage.SalesRows(rows, storage.Encoder{Date: storage.DateOnly, Amount: storage.FixedAmount})
	if err != nil {
		return 0, fmt.Errorf("mysql: %w", err)
	}
	cols := make([]string, len(storage.SalesColumns))
	for i, c := range storage.SalesColumns {
		cols[i] = myddl.QuoteIdent(c)
	}
	spec := storage.InsertSpec{
		Table:     myddl.QuoteFQN(r.cfg.Table),
		Columns:   cols,
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
		return 0, fmt.Errorf("mysql: %w", describe(err))
	}
	return n, nil
}

// describe appends the MySQL error number, which the driver's message omits
// for some server errors.
func describe(err error) error {
	var me *drv.MySQLError
	if errors.As(err, &me) {
		return fmt.Errorf("%w (errno %d)", err, me.Number)
	}
	return err
}
