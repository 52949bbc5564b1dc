// Package csv reads delimited source tables into frames.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/unicode/norm"

	"evadoption/internal/config"
	"evadoption/internal/frame"
)

const utf8BOM = "\uFEFF"

// Options tunes ReadFrame.
type Options struct {
	Comma      rune
	TrimSpace  bool
	LazyQuotes bool
	// HeaderMap renames raw headers (after trimming) before they become
	// column names.
	HeaderMap map[string]string
}

// OptionsFrom reads parser options: comma (default ","), trim_space
// (default true), lazy_quotes (default false) and header_map.
func OptionsFrom(o config.Options) Options {
	return Options{
		Comma:      o.Rune("comma", ','),
		TrimSpace:  o.Bool("trim_space", true),
		LazyQuotes: o.Bool("lazy_quotes", false),
		HeaderMap:  o.StringMap("header_map"),
	}
}

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv: missing header row")

// ReadFrame reads a header row and the records below it into a frame.
//
// Header cells are trimmed, BOM-stripped and NFC-normalized. Record cells
// stay strings; empty cells become nil. Short records are padded with nil.
// Records with more cells than the header, and records the csv reader cannot
// parse, are skipped and passed to onErr with their line number. The number
// of skipped records is returned. Any other read error ends the load. src is
// closed before returning.
func ReadFrame(ctx context.Context, src io.ReadCloser, opts Options, onErr func(line int, err error)) (*frame.Frame, int, error) {
	defer src.Close()

	if opts.Comma == 0 {
		opts.Comma = ','
	}
	cr := csv.NewReader(src)
	cr.Comma = opts.Comma
	cr.LazyQuotes = opts.LazyQuotes
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, 0, ErrNoHeader
	}
	if err != nil {
		return nil, 0, fmt.Errorf("csv: read header: %w", err)
	}
	names := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = norm.NFC.String(strings.TrimSpace(h))
		if mapped, ok := opts.HeaderMap[h]; ok {
			h = mapped
		}
		names[i] = h
	}
	f, err := frame.New(names...)
	if err != nil {
		return nil, 0, fmt.Errorf("csv: header: %w", err)
	}

	skipped := 0
	report := func(line int, err error) {
		skipped++
		if onErr != nil {
			onErr(line, err)
		}
	}
	width := len(names)
	for n := 0; ; n++ {
		if n%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, skipped, err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return nil, skipped, fmt.Errorf("csv: read: %w", err)
			}
			report(pe.Line, fmt.Errorf("csv read: %w", err))
			continue
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > width {
			report(line, fmt.Errorf("record has %d fields, header has %d", len(rec), width))
			continue
		}
		row := make([]any, width)
		for j, v := range rec {
			if opts.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row[j] = v
			}
		}
		_ = f.AppendRow(row)
	}
	if skipped > 0 {
		log.Printf("reader: rows=%d skipped=%d", f.Len(), skipped)
	}
	return f, skipped, nil
}
