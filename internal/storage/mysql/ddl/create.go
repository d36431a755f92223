// Package ddl renders MySQL CREATE TABLE statements from the generic
// ddl.TableDef model, using backtick-quoted identifiers.
package ddl

import (
	"fmt"
	"strings"

	gddl "salesetl/internal/ddl"
)

// Dialect is the MySQL rendering of the generic DDL model.
var Dialect = gddl.Dialect{
	Name:       "mysql",
	QuoteIdent: QuoteIdent,
	MapType:    MapType,
	Wrap: func(fqn, columns string) string {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n) DEFAULT CHARSET=utf8mb4;", fqn, columns)
	},
}

// QuoteIdent backtick-quotes one identifier segment.
func QuoteIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// QuoteFQN quotes every dotted segment of fqn.
func QuoteFQN(fqn string) string { return Dialect.QuoteFQN(fqn) }

// MapType maps a logical column type to a MySQL type. Amounts use
// DECIMAL(19,4); the loader rounds amounts to that scale before insert.
func MapType(c gddl.ColumnDef) (string, error) {
	switch c.Type {
	case gddl.Integer:
		return "BIGINT", nil
	case gddl.Date:
		return "DATE", nil
	case gddl.Varchar:
		if c.Length <= 0 {
			return "TEXT", nil
		}
		return fmt.Sprintf("VARCHAR(%d)", c.Length), nil
	case gddl.Decimal:
		return "DECIMAL(19,4)", nil
	case gddl.Text:
		return "TEXT", nil
	default:
		return "", fmt.Errorf("%w %q", gddl.ErrUnsupportedType, c.Type)
	}
}

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for t.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(Dialect, t)
}
