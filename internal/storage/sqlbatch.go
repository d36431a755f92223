package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"salesetl/internal/logging"
	"salesetl/internal/metrics"
)

// Execer is the subset of *sql.Tx used by InsertBatches.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// InsertSpec describes a multi-row INSERT with "?" bind parameters. Table
// and Columns are emitted verbatim, so callers pass them already quoted for
// their dialect.
type InsertSpec struct {
	Table     string
	Columns   []string
	BatchSize int
	// Job labels the batch counter.
	Job string
}

// InsertBatches writes rows with one multi-row INSERT per BatchSize rows,
// in input order, and returns the number of rows written. It stops at the
// first failing batch; the caller owns the transaction and rolls it back.
func InsertBatches(ctx context.Context, ex Execer, spec InsertSpec, rows [][]any) (int64, error) {
	if spec.BatchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if len(spec.Columns) == 0 {
		return 0, fmt.Errorf("columns must not be empty")
	}
	log := logging.FromContext(ctx)

	var (
		total   int64
		batches int64
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += spec.BatchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+spec.BatchSize, len(rows))
		batch := rows[lo:hi]

		query, args, err := buildInsert(spec, batch)
		if err != nil {
			return total, err
		}
		res, err := ex.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("insert batch #%d (rows %d-%d): %w", batches+1, lo+1, hi, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = int64(len(batch))
		}
		total += n
		batches++
		metrics.RecordBatches(spec.Job, 1)
		log.Debug().
			Int64("batch", batches).
			Int64("inserted", n).
			Int64("total_inserted", total).
			Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).
			Msg("insert batch flushed")
	}
	return total, nil
}

func buildInsert(spec InsertSpec, batch [][]any) (string, []any, error) {
	ncol := len(spec.Columns)

	var sb strings.Builder
	fmt.Fprintf(&sb, "INSERT INTO %s (%s) VALUES ", spec.Table, strings.Join(spec.Columns, ", "))

	args := make([]any, 0, len(batch)*ncol)
	for i, row := range batch {
		if len(row) != ncol {
			return "", nil, fmt.Errorf("row length %d != columns length %d", len(row), ncol)
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteByte('?')
			args = append(args, row[j])
		}
		sb.WriteByte(')')
	}
	return sb.String(), args, nil
}

// InTx runs fn inside a transaction on db. The transaction is committed when
// fn returns nil and rolled back otherwise; the rollback error, if any, is
// joined to fn's error. A panic in fn rolls back and is re-raised.
func InTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// OpenSingle opens a database/sql handle limited to one connection and
// verifies it with a ping bounded by ctx.
func OpenSingle(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: connect: %w", driver, err)
	}
	return db, nil
}
