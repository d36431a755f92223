// Package ddl contains MSSQL-specific helpers for generating DDL.
package ddl

import (
	"fmt"

	gddl "salesetl/internal/ddl"
)

// MapType maps a logical column type into a SQL Server column type.
// Strings are NVARCHAR so client names keep non-Latin characters.
func MapType(c gddl.ColumnDef) (string, error) {
	switch c.Type {
	case gddl.Integer:
		return "BIGINT", nil
	case gddl.Date:
		return "DATE", nil
	case gddl.Varchar:
		if c.Length <= 0 || c.Length > 4000 {
			return "NVARCHAR(MAX)", nil
		}
		return fmt.Sprintf("NVARCHAR(%d)", c.Length), nil
	case gddl.Decimal:
		return "DECIMAL(19, 4)", nil
	case gddl.Text:
		return "NVARCHAR(MAX)", nil
	default:
		return "", fmt.Errorf("%w %q", gddl.ErrUnsupportedType, c.Type)
	}
}
