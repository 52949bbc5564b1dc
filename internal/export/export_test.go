package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"

	"evadoption/internal/frame"
)

func sample(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.FromRows([]string{"Region", "Year", "EVs Sold", "Region Code"}, [][]any{
		{"Norway", int64(2020), 76000.5, "NOR"},
		{"Chile", int64(2021), nil, "CHL"},
		{"Kenya", int64(2022), int64(12), nil},
	})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return f
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "combined.csv")
	if err := WriteCSV(path, sample(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	fh, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer fh.Close()
	recs, err := csv.NewReader(fh).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(recs) != 4 {
		t.Fatalf("got %d records want 4", len(recs))
	}
	want := [][]string{
		{"Region", "Year", "EVs Sold", "Region Code"},
		{"Norway", "2020", "76000.5", "NOR"},
		{"Chile", "2021", "", "CHL"},
		{"Kenya", "2022", "12", ""},
	}
	for i := range want {
		for j := range want[i] {
			if recs[i][j] != want[i][j] {
				t.Fatalf("cell %d,%d: got %q want %q", i, j, recs[i][j], want[i][j])
			}
		}
	}
}

func TestWriteCSVLeavesNoTempOnSuccess(t *testing.T) {
	dir := t.TempDir()
	if err := WriteCSV(filepath.Join(dir, "out.csv"), sample(t)); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries want 1", len(entries))
	}
}

func TestWriteParquetRoundTrip(t *testing.T) {
	for _, codec := range []string{"", "gzip", "zstd", "none"} {
		t.Run("codec="+codec, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "combined.parquet")
			if err := WriteParquet(path, sample(t), codec); err != nil {
				t.Fatalf("WriteParquet: %v", err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				t.Fatalf("OpenFile: %v", err)
			}
			if pf.NumRows() != 3 {
				t.Fatalf("rows %d want 3", pf.NumRows())
			}
			fields := pf.Schema().Fields()
			col := map[string]int{}
			for i, fld := range fields {
				col[fld.Name()] = i
			}
			rows := make([]parquet.Row, 3)
			rr := pf.RowGroups()[0].Rows()
			defer rr.Close()
			n, err := rr.ReadRows(rows)
			if err != nil && err != io.EOF {
				t.Fatalf("ReadRows: %v", err)
			}
			if n != 3 {
				t.Fatalf("read %d rows want 3", n)
			}
			if got := rows[0][col["Year"]].Int64(); got != 2020 {
				t.Fatalf("Year got %d want 2020", got)
			}
			if !rows[1][col["EVs Sold"]].IsNull() {
				t.Fatalf("EVs Sold row 1 should be null")
			}
			if got := rows[2][col["EVs Sold"]].Double(); got != 12 {
				t.Fatalf("EVs Sold row 2 got %v want 12", got)
			}
			if got := string(rows[0][col["Region"]].ByteArray()); got != "Norway" {
				t.Fatalf("Region got %q want Norway", got)
			}
		})
	}
}

func TestWriteParquetUnknownCodec(t *testing.T) {
	if err := WriteParquet(filepath.Join(t.TempDir(), "x.parquet"), sample(t), "lz77"); err == nil {
		t.Fatalf("want error for unknown codec")
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.xlsx")
	before := []frame.ColumnNulls{{Column: "EVs Sold", Nulls: 5}}
	if err := WriteXLSX(path, sample(t), before); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	wb, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows(SheetCombined)
	if err != nil {
		t.Fatalf("GetRows combined: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "Region" || rows[1][0] != "Norway" {
		t.Fatalf("unexpected combined sheet: %v", rows)
	}
	miss, err := wb.GetRows(SheetMissing)
	if err != nil {
		t.Fatalf("GetRows missing: %v", err)
	}
	if len(miss) != 5 {
		t.Fatalf("missing sheet rows %d want 5", len(miss))
	}
	// Row for "EVs Sold": before=5, after=1.
	if miss[3][0] != "EVs Sold" || miss[3][1] != "5" || miss[3][2] != "1" {
		t.Fatalf("unexpected missing row: %v", miss[3])
	}
}

func TestFormatCell(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{int64(-3), "-3"},
		{1.25, "1.25"},
		{1e6, "1000000"},
	}
	for _, c := range cases {
		if got := formatCell(c.in); got != c.want {
			t.Fatalf("formatCell(%v) = %q want %q", c.in, got, c.want)
		}
	}
}
