// Package csv parses the quarterly sales file. The whole file is read in one
// pass; any malformed record, unparseable date or sales_id, or missing
// required column fails the parse as a whole.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"salesetl/internal/domain"
	"salesetl/internal/parser"
)

// Required sales columns (after header normalisation).
const (
	ColSalesID  = "sales_id"
	ColDate     = "date"
	ColProduct  = "product"
	ColAmount   = "amount"
	ColClientID = "client_id"
)

// DefaultDateLayouts are tried in order when Options.DateLayouts is empty.
var DefaultDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
}

// ErrBadValue is wrapped by RowError when a typed column cannot be parsed.
var ErrBadValue = errors.New("bad value")

// RowError reports a value that could not be parsed on a given line.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: column %s: %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Options configures the sales parser. Zero values select the defaults.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// HeaderMap maps raw header names to canonical column names.
	HeaderMap map[string]string

	// DateLayouts are the time layouts accepted for the date column.
	DateLayouts []string
}

// Parser parses sales CSV input. It is safe to reuse across inputs but not
// for concurrent use.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser {
	if len(opt.DateLayouts) == 0 {
		opt.DateLayouts = DefaultDateLayouts
	}
	return &Parser{opt: opt}
}

// ParseSales reads every record from r. The first record is the header;
// columns may appear in any order and extra columns are ignored. Amount is
// kept verbatim for the cleansing stage.
func (p *Parser) ParseSales(r io.Reader) ([]domain.Sale, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}

	h, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read csv header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := parser.NormalizeHeaders(h, p.opt.HeaderMap)
	idx, err := parser.IndexColumns(headers, ColSalesID, ColDate, ColProduct, ColAmount, ColClientID)
	if err != nil {
		return nil, fmt.Errorf("sales header: %w", err)
	}

	var out []domain.Sale
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		sale, err := p.toSale(row, idx, line)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, nil
}

func (p *Parser) toSale(row []string, idx map[string]int, line int) (domain.Sale, error) {
	rawID := strings.TrimSpace(parser.Cell(row, idx[ColSalesID]))
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return domain.Sale{}, &RowError{Line: line, Column: ColSalesID, Value: rawID, Err: fmt.Errorf("%w: not an integer", ErrBadValue)}
	}

	rawDate := strings.TrimSpace(parser.Cell(row, idx[ColDate]))
	date, err := p.parseDate(rawDate)
	if err != nil {
		return domain.Sale{}, &RowError{Line: line, Column: ColDate, Value: rawDate, Err: err}
	}

	return domain.Sale{
		SalesID:   id,
		Date:      date,
		Product:   parser.Cell(row, idx[ColProduct]),
		RawAmount: parser.Cell(row, idx[ColAmount]),
		ClientID:  parser.Cell(row, idx[ColClientID]),
		Line:      line,
	}, nil
}

// parseDate tries each configured layout in order.
func (p *Parser) parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrBadValue)
	}
	for _, layout := range p.opt.DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: no date layout matched", ErrBadValue)
}
