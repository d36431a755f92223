// Package ddl contains SQLite-specific helpers for generating DDL.
//
// SQLite is dynamically typed, so the mapping picks column affinities:
// amounts keep NUMERIC affinity and dates are stored as ISO-8601 TEXT.
package ddl

import (
	"fmt"

	gddl "salesetl/internal/ddl"
)

// MapType maps a logical column type to a SQLite column type.
func MapType(c gddl.ColumnDef) (string, error) {
	switch c.Type {
	case gddl.Integer:
		return "INTEGER", nil
	case gddl.Decimal:
		return "NUMERIC", nil
	case gddl.Date, gddl.Varchar, gddl.Text:
		return "TEXT", nil // length limits are not enforced by SQLite
	default:
		return "", fmt.Errorf("%w %q", gddl.ErrUnsupportedType, c.Type)
	}
}
