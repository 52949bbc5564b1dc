// Package schema holds the column contract the validate step checks the
// cleaned table against.
package schema

// Field constrains one column of the cleaned table.
type Field struct {
	Name string `json:"name"`
	// Type is "int", "float", "number" (int or float) or "string". Empty
	// skips the type check.
	Type string `json:"type,omitempty"`
	// Required means the column must exist and hold no absent cells.
	Required bool `json:"required,omitempty"`
	// Enum, when set, lists the only allowed string forms.
	Enum []string `json:"enum,omitempty"`
	// Forbid lists string forms that must not appear (e.g. "World").
	Forbid []string `json:"forbid,omitempty"`
}

// Contract is a named list of field constraints.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field returns the field named name, if the contract has one.
func (c Contract) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
