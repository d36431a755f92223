// Package xlsx reads the client directory from a named worksheet of an
// Excel workbook.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"salesetl/internal/domain"
	"salesetl/internal/parser"
)

// Required client columns (after header normalisation).
const (
	ColClientID = "client_id"
	ColName     = "name"
	ColRegion   = "region"
)

// DefaultSheet is the worksheet read when none is configured.
const DefaultSheet = "data"

// ErrSheetNotFound is returned (wrapped) when the workbook has no sheet with
// the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ParseClients opens the workbook in r and returns one Client per non-blank
// data row of sheet. The first row is the header; columns may appear in any
// order and extra columns are ignored. headerMap has the same meaning as for
// the CSV parser.
func ParseClients(r io.Reader, sheet string, headerMap map[string]string) ([]domain.Client, error) {
	if sheet == "" {
		sheet = DefaultSheet
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if !hasSheet(f.GetSheetList(), sheet) {
		return nil, fmt.Errorf("%w: %q (have %s)", ErrSheetNotFound, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q: %w: client_id, name, region", sheet, parser.ErrMissingColumn)
	}

	headers := parser.NormalizeHeaders(rows[0], headerMap)
	idx, err := parser.IndexColumns(headers, ColClientID, ColName, ColRegion)
	if err != nil {
		return nil, fmt.Errorf("sheet %q header: %w", sheet, err)
	}

	out := make([]domain.Client, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		out = append(out, domain.Client{
			ClientID: parser.Cell(row, idx[ColClientID]),
			Name:     parser.Cell(row, idx[ColName]),
			Region:   parser.Cell(row, idx[ColRegion]),
			Row:      i + 2,
		})
	}
	return out, nil
}

func hasSheet(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
