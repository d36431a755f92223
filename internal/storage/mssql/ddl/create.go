// Package ddl provides MSSQL-specific helpers for generating CREATE TABLE
// statements from the generic ddl.TableDef model.
//
// The builder here:
//   - Uses SQL Server-style identifier quoting: [schema].[table], [col].
//   - Wraps CREATE TABLE in an IF OBJECT_ID(...) IS NULL guard since T-SQL
//     does not support CREATE TABLE IF NOT EXISTS.
//   - Treats ColumnDef.Default as raw SQL.
package ddl

import (
	"fmt"
	"strings"

	gddl "salesetl/internal/ddl"
)

// Dialect is the T-SQL rendering of the generic DDL model.
var Dialect = gddl.Dialect{
	Name:       "mssql",
	QuoteIdent: quoteIdent,
	MapType:    MapType,
	Wrap:       wrap,
}

// BuildCreateTableSQL returns a T-SQL script that creates a table matching
// the provided definition if it does not already exist.
//
// The generated script has the form:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE [NOT NULL] [DEFAULT expr],
//	    [col2] TYPE
//	  );
//	END;
func BuildCreateTableSQL(t gddl.TableDef) (string, error) {
	return gddl.Render(Dialect, t)
}

// QuoteFQN quotes a possibly schema-qualified table name, e.g.:
//
//	"dbo.Sales"   -> [dbo].[Sales]
//	"Sales"       -> [Sales]
func QuoteFQN(fqn string) string { return Dialect.QuoteFQN(fqn) }

func wrap(fqn, columns string) string {
	// The object name sits inside an N'' literal, so single quotes double.
	lit := strings.ReplaceAll(fqn, "'", "''")
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		lit, fqn, columns,
	)
}

// quoteIdent quotes a single identifier segment for SQL Server using
// bracket syntax, escaping any closing brackets.
//
//	name      -> [name]
//	weird]id  -> [weird]]id]
func quoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}
