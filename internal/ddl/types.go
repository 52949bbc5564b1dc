// Package ddl models the destination table for the cleaned frame and
// renders dialect-neutral column lists. Storage backends quote identifiers
// and wrap the list in their own CREATE TABLE form.
package ddl

// ColumnDef is one column of a destination table. Name is unquoted.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef is a table name, possibly dotted ("schema.table"), and its
// ordered columns.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}
