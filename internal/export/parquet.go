package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"

	"evadoption/internal/frame"
)

// parquetBatch is the number of rows handed to WriteRows at a time.
const parquetBatch = 1000

// WriteParquet writes f as a Parquet file. Every column is optional so
// absent values survive; the column type follows the inferred kind.
func WriteParquet(path string, f *frame.Frame, compression string) error {
	codec, err := parquetCodec(compression)
	if err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		return encodeParquet(w, f, codec)
	})
}

// parquetCodec maps a compression name to a writer option. Empty means
// snappy.
func parquetCodec(name string) (parquet.WriterOption, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return parquet.Compression(&parquet.Snappy), nil
	case "gzip":
		return parquet.Compression(&parquet.Gzip), nil
	case "zstd":
		return parquet.Compression(&parquet.Zstd), nil
	case "none", "uncompressed":
		return parquet.Compression(&parquet.Uncompressed), nil
	default:
		return nil, fmt.Errorf("export: unknown parquet compression %q", name)
	}
}

// parquetNode picks the leaf type for a column kind. Empty and string
// columns are written as UTF-8 strings.
func parquetNode(k frame.Kind) parquet.Node {
	switch k {
	case frame.KindInt:
		return parquet.Optional(parquet.Int(64))
	case frame.KindFloat:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	default:
		return parquet.Optional(parquet.String())
	}
}

// encodeParquet streams f to w in batches under a schema derived from the
// column kinds.
func encodeParquet(w io.Writer, f *frame.Frame, codec parquet.WriterOption) error {
	if f.Width() == 0 {
		return fmt.Errorf("export: parquet: table has no columns")
	}
	kinds := f.Kinds()
	group := make(parquet.Group, f.Width())
	for j, name := range f.Names() {
		group[name] = parquetNode(kinds[j])
	}
	schema := parquet.NewSchema("ev_adoption", group)

	// Group fields are ordered by name; map each leaf back to its frame column.
	fields := schema.Fields()
	src := make([]int, len(fields))
	for i, fld := range fields {
		src[i] = f.Index(fld.Name())
	}

	pw := parquet.NewWriter(w, schema, codec)
	rows := make([]parquet.Row, 0, parquetBatch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(rows); err != nil {
			return fmt.Errorf("export: parquet write: %w", err)
		}
		rows = rows[:0]
		return nil
	}
	for _, r := range f.Rows() {
		row := make(parquet.Row, len(fields))
		for i, j := range src {
			row[i] = parquetValue(r[j], kinds[j]).Level(0, defLevel(r[j]), i)
		}
		rows = append(rows, row)
		if len(rows) == parquetBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("export: parquet close: %w", err)
	}
	return nil
}

// defLevel is the definition level of an optional leaf: 0 for null, 1 for
// a present value.
func defLevel(v any) int {
	if v == nil {
		return 0
	}
	return 1
}

// parquetValue converts a cell for a leaf of kind k. Cells that do not fit
// the kind fall back to their text form.
func parquetValue(v any, k frame.Kind) parquet.Value {
	if v == nil {
		return parquet.NullValue()
	}
	switch k {
	case frame.KindInt:
		if i, ok := v.(int64); ok {
			return parquet.Int64Value(i)
		}
	case frame.KindFloat:
		if x, ok := frame.ToFloat(v); ok {
			return parquet.DoubleValue(x)
		}
	}
	return parquet.ByteArrayValue([]byte(formatCell(v)))
}
