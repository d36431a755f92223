package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"salesetl/internal/domain"
	"salesetl/internal/storage"
	"salesetl/internal/transformer"
)

// fakeTx embeds pgx.Tx so only the methods LoadSales touches need bodies.
type fakeTx struct {
	pgx.Tx
	copyErr    error
	commitErr  error
	table      pgx.Identifier
	columns    []string
	rows       [][]any
	committed  bool
	rolledBack bool
}

func (f *fakeTx) CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	f.table, f.columns = table, cols
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.rows = append(f.rows, vals)
	}
	return int64(len(f.rows)), src.Err()
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeConn struct {
	tx       *fakeTx
	beginErr error
	execSQL  []string
	execErr  error
	closed   bool
}

func (f *fakeConn) Begin(ctx context.Context) (pgx.Tx, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.tx, nil
}

func (f *fakeConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = append(f.execSQL, sql)
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeConn) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func sampleRows() []domain.JoinedSale {
	d := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	return []domain.JoinedSale{
		{
			CleanSale: domain.CleanSale{
				Sale:   domain.Sale{SalesID: 1, Date: d, Product: "Widget", ClientID: "C1", Line: 2},
				Amount: decimal.RequireFromString("100.50"),
			},
			Name: "Acme", Region: "East", Matched: true, Month: 3,
		},
		{
			CleanSale: domain.CleanSale{
				Sale:   domain.Sale{SalesID: 2, Date: d, Product: "Gadget", ClientID: "C9", Line: 3},
				Amount: decimal.RequireFromString("0.3333"),
			},
			Month: 3,
		},
	}
}

func TestLoadSales_CopiesInOneTransaction(t *testing.T) {
	t.Parallel()

	tx := &fakeTx{}
	r := &Repository{conn: &fakeConn{tx: tx}, cfg: Config{Table: "public.sales_fintech"}}

	n, err := r.LoadSales(context.Background(), sampleRows())
	if err != nil {
		t.Fatalf("LoadSales() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("LoadSales() = %d, want 2", n)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v, want commit only", tx.committed, tx.rolledBack)
	}
	if got := strings.Join(tx.table, "."); got != "public.sales_fintech" {
		t.Fatalf("table = %q", got)
	}
	if len(tx.columns) != 8 || tx.columns[3] != "amount" {
		t.Fatalf("columns = %v", tx.columns)
	}

	amt, ok := tx.rows[0][3].(pgtype.Numeric)
	if !ok {
		t.Fatalf("amount type = %T, want pgtype.Numeric", tx.rows[0][3])
	}
	v, err := amt.Value()
	if err != nil || v != "100.5000" {
		t.Fatalf("amount value = %v, %v; want 100.5000", v, err)
	}
	if tx.rows[1][5] != nil || tx.rows[1][6] != nil {
		t.Fatalf("unmatched name/region = %v/%v, want NULL", tx.rows[1][5], tx.rows[1][6])
	}
}

func TestLoadSales_AmountScale(t *testing.T) {
	t.Parallel()

	rows := sampleRows()[:1]
	amt, ok := transformer.ParseAmount("10.12345")
	if !ok {
		t.Fatalf("ParseAmount rejected 10.12345")
	}
	rows[0].Amount = amt

	tx := &fakeTx{}
	r := &Repository{conn: &fakeConn{tx: tx}, cfg: Config{Table: "sales_fintech"}}
	if _, err := r.LoadSales(context.Background(), rows); err != nil {
		t.Fatalf("LoadSales() error = %v", err)
	}
	v, err := tx.rows[0][3].(pgtype.Numeric).Value()
	if err != nil || v != "10.1235" {
		t.Fatalf("amount value = %v, %v; want 10.1235", v, err)
	}

	rows[0].Amount = decimal.RequireFromString("10.12345")
	tx2 := &fakeTx{}
	r2 := &Repository{conn: &fakeConn{tx: tx2}, cfg: Config{Table: "sales_fintech"}}
	if _, err := r2.LoadSales(context.Background(), rows); !errors.Is(err, storage.ErrAmountOutOfRange) {
		t.Fatalf("err = %v, want ErrAmountOutOfRange", err)
	}
	if tx2.committed {
		t.Fatalf("committed an amount wider than the column scale")
	}
}

func TestLoadSales_CopyErrorRollsBack(t *testing.T) {
	t.Parallel()

	boom := &pgconn.PgError{Code: "23502", Message: "null value", Detail: "Failing row contains (...)"}
	tx := &fakeTx{copyErr: boom}
	r := &Repository{conn: &fakeConn{tx: tx}, cfg: Config{Table: "sales"}}

	_, err := r.LoadSales(context.Background(), sampleRows())
	if err == nil {
		t.Fatalf("expected error")
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("error chain lost PgError: %v", err)
	}
	if !strings.Contains(err.Error(), "Failing row") {
		t.Fatalf("error %q missing server detail", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v, want rollback", tx.committed, tx.rolledBack)
	}
}

func TestLoadSales_BeginError(t *testing.T) {
	t.Parallel()

	r := &Repository{conn: &fakeConn{beginErr: errors.New("conn busy")}, cfg: Config{Table: "sales"}}
	if _, err := r.LoadSales(context.Background(), sampleRows()); err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("LoadSales() error = %v, want begin tx error", err)
	}
}

func TestEnsureTable_ExecutesDDL(t *testing.T) {
	t.Parallel()

	c := &fakeConn{}
	r := &Repository{conn: c, cfg: Config{Table: "public.sales_fintech"}}
	if err := r.EnsureTable(context.Background()); err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}
	if len(c.execSQL) != 1 || !strings.HasPrefix(c.execSQL[0], `CREATE TABLE IF NOT EXISTS "public"."sales_fintech"`) {
		t.Fatalf("exec = %v", c.execSQL)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestSplitFQN(t *testing.T) {
	t.Parallel()

	if got := splitFQN("public.sales"); len(got) != 2 || got[0] != "public" || got[1] != "sales" {
		t.Fatalf("splitFQN(public.sales) = %v", got)
	}
	if got := splitFQN("sales"); len(got) != 1 || got[0] != "sales" {
		t.Fatalf("splitFQN(sales) = %v", got)
	}
}
