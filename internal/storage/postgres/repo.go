// Package postgres implements storage.Repository on a single pgx connection.
// Rows are streamed with COPY FROM inside one explicit transaction, so a run
// either commits every row or none.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"salesetl/internal/domain"
	"salesetl/internal/logging"
	"salesetl/internal/storage"
	pgddl "salesetl/internal/storage/postgres/ddl"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // keyword/value or URL connection string
	Table string // optionally schema-qualified, e.g. "public.sales_fintech"
}

// conn is the part of *pgx.Conn the repository uses.
type conn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close(ctx context.Context) error
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	conn conn
	cfg  Config
}

// NewRepository opens one connection and returns a Repository plus a close
// function that releases it.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func() error, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	c, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: connect: %w", err)
	}
	r := &Repository{conn: c, cfg: cfg}
	return r, r.close, nil
}

func (r *Repository) close() error {
	// Close must succeed even when the run context is already canceled.
	return r.conn.Close(context.Background())
}

// EnsureTable creates the destination table if absent.
func (r *Repository) EnsureTable(ctx context.Context) error {
	stmt, err := pgddl.BuildCreateTableSQL(storage.SalesTable(r.cfg.Table))
	if err != nil {
		return err
	}
	if _, err := r.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", r.cfg.Table, describe(err))
	}
	return nil
}

// LoadSales copies rows into the table inside one transaction.
func (r *Repository) LoadSales(ctx context.Context, rows []domain.JoinedSale) (int64, error) {
	vals, err := storage.SalesRows(rows, storage.Encoder{Amount: numeric})
	if err != nil {
		return 0, fmt.Errorf("postgres: %w", err)
	}

	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin tx: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer func() { _ = tx.Rollback(context.Background()) }()

	n, err := tx.CopyFrom(ctx, splitFQN(r.cfg.Table), storage.SalesColumns, pgx.CopyFromRows(vals))
	if err != nil {
		return 0, fmt.Errorf("postgres: copy into %s: %w", r.cfg.Table, describe(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	log := logging.FromContext(ctx)
	log.Debug().Int64("rows", n).Str("table", r.cfg.Table).Msg("copy committed")
	return n, nil
}

// numeric converts an exact decimal to pgtype.Numeric via its text form.
func numeric(d decimal.Decimal) (any, error) {
	s, err := storage.FixedAmount(d)
	if err != nil {
		return nil, err
	}
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return nil, err
	}
	return n, nil
}

// describe surfaces the server detail of a PgError while keeping the chain.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}
