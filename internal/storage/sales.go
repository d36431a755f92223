package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"salesetl/internal/ddl"
	"salesetl/internal/domain"
)

// SalesColumns is the column order used for every insert path.
var SalesColumns = []string{"sales_id", "date", "product", "amount", "client_id", "name", "region", "month"}

// SalesTable returns the destination table definition. Dialects map the
// logical types; numeric amounts keep full precision where the backend allows.
func SalesTable(fqn string) ddl.TableDef {
	return ddl.TableDef{
		FQN: fqn,
		Columns: []ddl.ColumnDef{
			{Name: "sales_id", Type: ddl.Integer},
			{Name: "date", Type: ddl.Date},
			{Name: "product", Type: ddl.Varchar, Length: 100, Nullable: true},
			{Name: "amount", Type: ddl.Decimal},
			{Name: "client_id", Type: ddl.Varchar, Length: 10, Nullable: true},
			{Name: "name", Type: ddl.Varchar, Length: 100, Nullable: true},
			{Name: "region", Type: ddl.Varchar, Length: 50, Nullable: true},
			{Name: "month", Type: ddl.Integer},
		},
	}
}

// Encoder converts the typed fields a driver cannot take as-is.
type Encoder struct {
	// Date encodes the sale date. Nil passes time.Time through.
	Date func(time.Time) any
	// Amount encodes the amount. Nil passes the decimal string.
	Amount func(decimal.Decimal) (any, error)
}

// DateOnly formats dates as YYYY-MM-DD, for drivers without a DATE type.
func DateOnly(t time.Time) any { return t.Format(time.DateOnly) }

// ErrAmountOutOfRange is returned (wrapped) by FixedAmount for amounts a
// DECIMAL(domain.AmountPrecision, domain.AmountScale) column cannot hold
// exactly.
var ErrAmountOutOfRange = errors.New("amount does not fit the amount column")

var fixedLimit = decimal.New(1, domain.AmountPrecision-domain.AmountScale)

// FixedAmount renders an amount with exactly domain.AmountScale decimals,
// for backends whose amount column is a fixed-scale DECIMAL. It refuses
// values the server would otherwise round or reject.
func FixedAmount(d decimal.Decimal) (any, error) {
	if d.Abs().GreaterThanOrEqual(fixedLimit) || !d.Equal(d.Round(domain.AmountScale)) {
		return nil, ErrAmountOutOfRange
	}
	return d.StringFixed(domain.AmountScale), nil
}

// SalesRows converts rows into driver values aligned with SalesColumns.
// Empty product, client_id, name, and region become NULL.
func SalesRows(rows []domain.JoinedSale, enc Encoder) ([][]any, error) {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		var date any = r.Date
		if enc.Date != nil {
			date = enc.Date(r.Date)
		}
		var amount any = r.Amount.String()
		if enc.Amount != nil {
			v, err := enc.Amount(r.Amount)
			if err != nil {
				return nil, fmt.Errorf("line %d: amount %s: %w", r.Line, r.Amount, err)
			}
			amount = v
		}
		out = append(out, []any{
			r.SalesID,
			date,
			nullable(r.Product),
			amount,
			nullable(r.ClientID),
			nullable(r.Name),
			nullable(r.Region),
			int64(r.Month),
		})
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
