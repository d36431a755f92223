// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Rows are bulk-copied straight into the target
// table inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"salesetl/internal/domain"
	"salesetl/internal/logging"
	"salesetl/internal/metrics"
	"salesetl/internal/storage"
	msddl "salesetl/internal/storage/mssql/ddl"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN       string
	Table     string
	BatchSize int // rows per bulk-copy network batch
	Job       string
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository opens a single connection and returns a Repository plus a
// close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := storage.OpenSingle(ctx, "sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	return &Repository{db: db, cfg: cfg}, db.Close, nil
}

// EnsureTable creates the destination table if absent.
func (r *Repository) EnsureTable(ctx context.Context) error {
	stmt, err := msddl.BuildCreateTableSQL(storage.SalesTable(r.cfg.Table))
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mssql: create table %s: %w", r.cfg.Table, describe(err))
	}
	return nil
}

// LoadSales bulk-copies rows into the target table inside one transaction.
func (r *Repository) LoadSales(ctx context.Context, rows []domain.JoinedSale) (int64, error) {
	vals, err := storage.SalesRows(rows, storage.Encoder{Amount: storage.FixedAmount})
	if err != nil {
		return 0, fmt.Errorf("mssql: %w", err)
	}
	if len(vals) == 0 {
		return 0, nil
	}

	var n int64
	err = storage.InTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		n, err = r.copyIn(ctx, tx, vals)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mssql: %w", describe(err))
	}
	metrics.RecordBatches(r.cfg.Job, 1)
	log := logging.FromContext(ctx)
	log.Debug().Int64("rows", n).Str("table", r.cfg.Table).Msg("bulk copy committed")
	return n, nil
}

func (r *Repository) copyIn(ctx context.Context, tx *sql.Tx, vals [][]any) (int64, error) {
	opts := mssql.BulkOptions{RowsPerBatch: r.cfg.BatchSize, Tablock: true}
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(msddl.QuoteFQN(r.cfg.Table), opts, storage.SalesColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	defer stmt.Close()

	for i := range vals {
		if _, err := stmt.ExecContext(ctx, vals[i]...); err != nil {
			return 0, fmt.Errorf("bulk row %d: %w", i+1, err)
		}
	}
	// An Exec without arguments flushes the buffered rows.
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// describe appends the server error number and line when available.
func describe(err error) error {
	var me mssql.Error
	if errors.As(err, &me) {
		return fmt.Errorf("%w (error %d, line %d)", err, me.Number, me.LineNo)
	}
	return err
}
