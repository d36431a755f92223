// Package parser holds the helpers shared by the tabular input parsers:
// header normalisation and required-column lookup.
package parser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned (wrapped) when a required column is absent
// from an input header.
var ErrMissingColumn = errors.New("missing required column")

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// NormalizeHeaders produces canonical header keys: trimmed, lowercase, with
// spaces replaced by underscores. A UTF-8 BOM on the first cell is dropped.
// headerMap, when non-nil, maps a raw (trimmed) header to a canonical key and
// takes precedence over the default normalisation.
func NormalizeHeaders(h []string, headerMap map[string]string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimSpace(strings.TrimPrefix(c, utf8BOM))
		}
		if m, ok := headerMap[c]; ok {
			res[i] = m
			continue
		}
		res[i] = strings.ReplaceAll(strings.ToLower(c), " ", "_")
	}
	return res
}

// IndexColumns returns the position of each required column within headers.
// The first occurrence of a duplicated header wins. Missing columns are all
// reported in one error.
func IndexColumns(headers []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	var missing []string
	for _, r := range required {
		if _, ok := idx[r]; !ok {
			missing = append(missing, r)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return idx, nil
}

// Cell returns row[i] or "" when the row is shorter than i+1.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
