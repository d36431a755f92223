// Package report computes and prints the end-of-run sales summary.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"salesetl/internal/domain"
)

const (
	// NoRegion labels rows without a region: unmatched clients or blank cells.
	NoRegion = "(no region)"
	// NoProduct is reported as the top product of an empty dataset.
	NoProduct = "(none)"
	// DefaultCurrency suffixes the revenue line when Options.Currency is empty.
	DefaultCurrency = "RUB"
)

// RegionTotal is the revenue of one region.
type RegionTotal struct {
	Region  string
	Revenue decimal.Decimal
	Rows    int
}

// Summary holds the statistics printed at the end of a run.
type Summary struct {
	Total      int
	Revenue    decimal.Decimal
	ByRegion   []RegionTotal
	TopProduct string
	TopCount   int
}

// Summarize computes the summary over rows. Regions are sorted by name with
// the NoRegion group last; the top product is the most frequent non-empty
// product, ties going to the lexicographically smallest name.
func Summarize(rows []domain.JoinedSale) Summary {
	s := Summary{Total: len(rows), Revenue: decimal.Zero, TopProduct: NoProduct}

	regions := map[string]*RegionTotal{}
	products := map[string]int{}
	for _, r := range rows {
		s.Revenue = s.Revenue.Add(r.Amount)

		key := r.Region
		if key == "" {
			key = NoRegion
		}
		rt, ok := regions[key]
		if !ok {
			rt = &RegionTotal{Region: key, Revenue: decimal.Zero}
			regions[key] = rt
		}
		rt.Revenue = rt.Revenue.Add(r.Amount)
		rt.Rows++

		if r.Product != "" {
			products[r.Product]++
		}
	}

	s.ByRegion = make([]RegionTotal, 0, len(regions))
	for _, rt := range regions {
		s.ByRegion = append(s.ByRegion, *rt)
	}
	sort.Slice(s.ByRegion, func(i, j int) bool {
		a, b := s.ByRegion[i].Region, s.ByRegion[j].Region
		if (a == NoRegion) != (b == NoRegion) {
			return b == NoRegion
		}
		return a < b
	})

	for p, n := range products {
		if n > s.TopCount || (n == s.TopCount && p < s.TopProduct) {
			s.TopProduct, s.TopCount = p, n
		}
	}
	return s
}

// Options controls Render.
type Options struct {
	// Currency follows the total revenue, e.g. "RUB".
	Currency string
}

// Render writes the human-readable report to w.
func Render(w io.Writer, s Summary, opts Options) error {
	cur := opts.Currency
	if cur == "" {
		cur = DefaultCurrency
	}
	p := message.NewPrinter(language.English)

	if _, err := fmt.Fprintf(w, "\n=== SALES REPORT ===\nTotal sales: %s\nTotal revenue: %s %s\n\nRevenue by region:\n",
		p.Sprintf("%d", s.Total), FormatAmount(s.Revenue), cur); err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Region", "Rows", "Revenue"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	for _, rt := range s.ByRegion {
		t.AppendRow(table.Row{rt.Region, rt.Rows, rt.Revenue.StringFixed(2)})
	}
	t.Render()

	top := s.TopProduct
	if s.TopCount > 0 {
		top = fmt.Sprintf("%s (%d sales)", top, s.TopCount)
	}
	_, err := fmt.Fprintf(w, "\nTop-selling product: %s\n", top)
	return err
}

// FormatAmount rounds d half away from zero to two decimals and groups the
// integer part in thousands: 1234567.891 -> "1,234,567.89".
func FormatAmount(d decimal.Decimal) string {
	fixed := d.Round(2)
	sign := ""
	if fixed.IsNegative() {
		sign = "-"
		fixed = fixed.Abs()
	}
	whole := fixed.Truncate(0)
	frac := fixed.Sub(whole).StringFixed(2)[1:] // ".xx"

	var grouped string
	if whole.BigInt().IsInt64() {
		grouped = message.NewPrinter(language.English).Sprintf("%d", whole.IntPart())
	} else {
		grouped = groupDigits(whole.String())
	}
	return sign + grouped + frac
}

// groupDigits inserts commas into a run of ASCII digits.
func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	head := len(s) % 3
	if head == 0 {
		head = 3
	}
	out := []byte(s[:head])
	for i := head; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
