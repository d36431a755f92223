// Package ddl defines a small, backend-agnostic model for SQL DDL and renders
// CREATE TABLE statements from it through a per-backend Dialect.
package ddl

import (
	"errors"
	"fmt"
	"strings"
)

// Dialect supplies the backend-specific parts of a CREATE TABLE statement.
// Zero-valued fields fall back to the plain behaviour: identifiers emitted
// verbatim, SQLType required on every column, and no existence guard.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres".
	Name string
	// QuoteIdent quotes one identifier segment.
	QuoteIdent func(string) string
	// MapType resolves a column whose SQLType is empty.
	MapType func(ColumnDef) (string, error)
	// Wrap turns the quoted table name and the rendered column list into the
	// final statement. Nil means "CREATE TABLE IF NOT EXISTS <t> (...);".
	Wrap func(fqn, columns string) string
}

// QuoteFQN quotes every dotted segment of fqn with d.QuoteIdent.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, d.quote(p))
	}
	return strings.Join(out, ".")
}

func (d Dialect) quote(id string) string {
	if d.QuoteIdent == nil {
		return id
	}
	return d.QuoteIdent(id)
}

func (d Dialect) prefix() string {
	if d.Name == "" {
		return "ddl"
	}
	return d.Name + " ddl"
}

// Render builds a CREATE TABLE statement for t in dialect d.
//
// Each column is rendered as
//
//	<Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
// and columns with PrimaryKey are collected into a trailing
// PRIMARY KEY (...) clause. Primary-key columns are always NOT NULL.
func Render(d Dialect, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", d.prefix())
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", d.prefix())
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", d.prefix(), fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" && d.MapType != nil && c.Type != "" {
			var err error
			if typ, err = d.MapType(c); err != nil {
				return "", fmt.Errorf("%s: column %s: %w", d.prefix(), name, err)
			}
		}
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", d.prefix(), name)
		}

		var sb strings.Builder
		sb.WriteString(d.quote(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}

		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			// Default is emitted as raw SQL expression.
			sb.WriteString(def)
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.quote(name))
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	quoted := d.QuoteFQN(fqn)
	if d.Wrap != nil {
		return d.Wrap(quoted, strings.Join(cols, ",\n    ")), nil
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		quoted,
		strings.Join(cols, ",\n  "),
	), nil
}

// ErrUnsupportedType is returned by MapType implementations for logical
// types they cannot express.
var ErrUnsupportedType = errors.New("unsupported column type")
