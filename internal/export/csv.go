package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"evadoption/internal/frame"
)

// WriteCSV writes f with a header row. Absent values are empty fields.
func WriteCSV(path string, f *frame.Frame) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodeCSV(w, f)
	})
}

// EncodeCSV writes f as CSV to w. Cells are rendered by formatCell, so
// numbers round-trip without exponent notation.
func EncodeCSV(w io.Writer, f *frame.Frame) error {
	bw := bufio.NewWriterSize(w, 1<<16)
	cw := csv.NewWriter(bw)
	if err := cw.Write(f.Names()); err != nil {
		return fmt.Errorf("export: csv header: %w", err)
	}
	rec := make([]string, f.Width())
	for i, row := range f.Rows() {
		for j, v := range row {
			rec[j] = formatCell(v)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: csv flush: %w", err)
	}
	return bw.Flush()
}
