package transformer

import (
	"strings"

	"github.com/shopspring/decimal"

	"salesetl/internal/domain"
)

const maxIntegerDigits = domain.AmountPrecision - domain.AmountScale

// amountLimit is the smallest magnitude that no longer fits an amount column.
var amountLimit = decimal.New(1, maxIntegerDigits)

// ParseAmount coerces a raw amount to a decimal rounded to domain.AmountScale
// places. Empty, non-numeric, and digit-grouped values ("1,000") are invalid,
// as are values with more than AmountPrecision-AmountScale integer digits.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	if d.IsZero() {
		return decimal.Zero, true
	}

	// Magnitude is checked on coefficient and exponent before anything
	// expands the value, so "1e2000000000" costs no more than "1e3".
	mag := d.NumDigits() + int(d.Exponent())
	switch {
	case mag > maxIntegerDigits:
		return decimal.Decimal{}, false
	case mag < -domain.AmountScale:
		// below 10^-5, rounds to zero
		return decimal.Zero, true
	}

	d = d.Round(domain.AmountScale)
	if d.Abs().GreaterThanOrEqual(amountLimit) {
		return decimal.Decimal{}, false
	}
	return d, true
}

// CoerceAmounts parses the amount of every sale and returns the sales whose
// amount is numeric, in input order, together with the number of rows that
// were dropped. Each dropped row is reported to onReject.
//
// Text fields are normalised here as well so that everything downstream
// (join keys, report grouping, persisted values) sees one canonical form.
func CoerceAmounts(in []domain.Sale, onReject RejectFn) ([]domain.CleanSale, int) {
	out := make([]domain.CleanSale, 0, len(in))
	dropped := 0
	for _, s := range in {
		amt, ok := ParseAmount(s.RawAmount)
		if !ok {
			dropped++
			onReject.call(s.Line, "invalid amount "+quote(s.RawAmount))
			continue
		}
		s.Product = NormalizeText(s.Product)
		s.ClientID = NormalizeText(s.ClientID)
		out = append(out, domain.CleanSale{Sale: s, Amount: amt})
	}
	return out, dropped
}

func quote(s string) string {
	const max = 40
	if len(s) > max {
		s = s[:max] + "..."
	}
	return `"` + s + `"`
}
