package ddl

import (
	"strings"

	gddl "salesetl/internal/ddl"
)

// Dialect renders double-quoted identifiers and CREATE TABLE IF NOT EXISTS.
var Dialect = gddl.Dialect{
	Name:       "postgres",
	QuoteIdent: QuoteIdent,
	MapType:    MapType,
}

// QuoteIdent double-quotes one identifier segment, escaping embedded quotes.
func QuoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// BuildCreateTableSQL returns a CREATE TABLE IF NOT EXISTS statement for t.
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(Dialect, t)
}
