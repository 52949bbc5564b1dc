package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a pipeline file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON. Unknown JSON fields are rejected.
func Load(path string) (Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	p, err := Decode(bytes.NewReader(b), format)
	if err != nil {
		return Pipeline{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return p, nil
}

// Decode decodes a pipeline from r in the given format ("json" or "yaml").
func Decode(r io.Reader, format string) (Pipeline, error) {
	var p Pipeline
	switch format {
	case "yaml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && err != io.EOF {
			return Pipeline{}, fmt.Errorf("decode yaml: %w", err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return Pipeline{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return Pipeline{}, fmt.Errorf("unknown config format %q", format)
	}
	return p, nil
}

// DefaultKeys are the join keys shared by the Our World in Data tables.
var DefaultKeys = []string{"Entity", "Code", "Year"}

// DefaultExclude is the aggregate region dropped from the cleaned table.
const DefaultExclude = "World"

// DefaultRename maps merged source column names to the canonical names the
// report and sinks consume.
func DefaultRename() map[string]string {
	return map[string]string{
		"Entity": "Region",
		"Code":   "Region Code",
		"Battery-electric as a share of electric cars sold": "BEV Shares",
		"Electric cars sold_x":                              "EVs Sold",
		"Non-electric car sales":                            "Non-EV Sales",
		"Share of new cars that are electric":               "New Car EV Shares",
		"Electric car stocks":                               "EV Stocks",
		"category":                                          "Category",
		"parameter":                                         "Parameter",
		"mode":                                              "Mode",
		"powertrain":                                        "Powertrain",
		"unit":                                              "Unit",
		"value":                                             "Value",
		"Plug-in hybrid as a share of cars sold":            "All Car EV Shares",
		"Battery-electric as a share of cars sold":          "All Car BEV Shares",
		"Share of car stocks that are electric":             "EV Stock Shares",
	}
}
