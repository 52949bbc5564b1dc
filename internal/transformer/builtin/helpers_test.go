package builtin

import (
	"testing"

	"evadoption/internal/frame"
)

func mkFrame(t *testing.T, names []string, rows ...[]any) *frame.Frame {
	t.Helper()
	f, err := frame.FromRows(names, rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return f
}

func column(t *testing.T, f *frame.Frame, name string) []any {
	t.Helper()
	col, err := f.Column(name)
	if err != nil {
		t.Fatalf("Column(%q): %v", name, err)
	}
	return col
}
