// Package builtin contains the clean steps the pipeline can configure.
package builtin

import (
	"log"

	"evadoption/internal/frame"
)

// Rename maps column names to canonical names in a single pass. Unmapped
// columns keep their names. A mapping that would produce two columns with
// the same name fails with frame.ErrDuplicateColumn.
type Rename struct {
	Columns map[string]string
}

// Apply renames f in place.
func (r Rename) Apply(f *frame.Frame) (*frame.Frame, error) {
	if err := f.Rename(r.Columns); err != nil {
		return nil, err
	}
	return f, nil
}

// DropColumns removes columns, typically the duplicates joins leave behind
// (a right key kept under its own name, or a "_y" copy of a shared column).
// Names the frame lacks are logged and ignored.
type DropColumns struct {
	Columns []string
}

func (d DropColumns) Apply(f *frame.Frame) (*frame.Frame, error) {
	for _, c := range f.Drop(d.Columns...) {
		log.Printf("drop_columns: column=%q not present", c)
	}
	return f, nil
}
