package ddl

import (
	"errors"
	"fmt"
	"strings"

	"evadoption/internal/frame"
)

// ErrEmptyTable is returned when a definition has no name or no columns.
var ErrEmptyTable = errors.New("ddl: table name and at least one column required")

// TypeMapper maps an inferred column kind to a backend SQL type.
type TypeMapper func(frame.Kind) string

// FromFrame infers a table definition from the column kinds of f. Every
// column is nullable; the cleaned table has no natural primary key.
func FromFrame(fqn string, f *frame.Frame, typeOf TypeMapper) TableDef {
	kinds := f.Kinds()
	td := TableDef{FQN: fqn, Columns: make([]ColumnDef, len(kinds))}
	for i, name := range f.Names() {
		td.Columns[i] = ColumnDef{Name: name, SQLType: typeOf(kinds[i]), Nullable: true}
	}
	return td
}

// ColumnList renders "(col TYPE [NOT NULL] [DEFAULT x], ..., [PRIMARY KEY (...)])"
// with identifiers passed through quote.
func ColumnList(t TableDef, quote func(string) string) (string, error) {
	if strings.TrimSpace(t.FQN) == "" || len(t.Columns) == 0 {
		return "", ErrEmptyTable
	}
	var (
		b  strings.Builder
		pk []string
	)
	b.WriteString("(\n")
	for i, c := range t.Columns {
		if c.Name == "" || c.SQLType == "" {
			return "", fmt.Errorf("ddl: column %d: name and type required", i)
		}
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "  %s %s", quote(c.Name), c.SQLType)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if c.Default != "" {
			b.WriteString(" DEFAULT " + c.Default)
		}
		if c.PrimaryKey {
			pk = append(pk, quote(c.Name))
		}
	}
	if len(pk) > 0 {
		fmt.Fprintf(&b, ",\n  PRIMARY KEY (%s)", strings.Join(pk, ", "))
	}
	b.WriteString("\n)")
	return b.String(), nil
}
