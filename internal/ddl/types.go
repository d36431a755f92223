package ddl

// Type is a logical column type. Dialects map it to a concrete SQL type.
type Type string

const (
	Integer Type = "integer"
	Date    Type = "date"
	Varchar Type = "varchar"
	Decimal Type = "decimal"
	Text    Type = "text"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: logical type, resolved by the dialect when SQLType is empty
//   - Length: maximum length for Varchar
//   - SQLType: explicit target SQL type; overrides Type
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	Type       Type
	Length     int
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the table name, optionally schema-qualified in dotted form
// ("schema.table"), and the ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
