// Package ddl renders Postgres DDL for the generic ddl.TableDef model.
package ddl

import (
	"fmt"

	gddl "salesetl/internal/ddl"
)

// MapType maps a logical column type to a Postgres type.
//
//	integer -> INTEGER
//	date    -> DATE
//	varchar -> VARCHAR(n), or TEXT when no length is given
//	decimal -> NUMERIC(19,4)
//	text    -> TEXT
func MapType(c gddl.ColumnDef) (string, error) {
	switch c.Type {
	case gddl.Integer:
		return "INTEGER", nil
	case gddl.Date:
		return "DATE", nil
	case gddl.Varchar:
		if c.Length <= 0 {
			return "TEXT", nil
		}
		return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
	case gddl.Decimal:
		return "NUMERIC(19,4)", nil
	case gddl.Text:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("%w %q", gddl.ErrUnsupportedType, c.Type)
	}
}
