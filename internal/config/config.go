// Package config defines the pipeline configuration model for evmerge.
//
// A pipeline file lists the sources to load, the joins that merge them into
// one combined table, the ordered clean steps, and the sinks that receive
// the result. Files are JSON or YAML; both decode into the same Pipeline.
//
// Example (trimmed):
//
//	{
//	  "job": "ev_adoption",
//	  "sources": [
//	    { "name": "ev_sales", "kind": "file", "file": { "path": "data/ev-sales.csv" } },
//	    { "name": "iea", "kind": "file", "file": { "path": "data/iea.csv" } }
//	  ],
//	  "joins": [
//	    { "source": "iea", "left_on": ["Entity", "Year"], "right_on": ["region", "year"] }
//	  ],
//	  "clean": [ { "kind": "rename", "options": { "columns": { "Entity": "Region" } } } ],
//	  "storage": { "kind": "sqlite", "db": { "dsn": "file:ev.db", "table": "ev_adoption" } }
//	}
package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the run in logs and metrics labels.
	Job string `json:"job" yaml:"job"`

	// Sources are loaded in parallel; the first one is the base table every
	// join extends.
	Sources []Source `json:"sources" yaml:"sources"`

	// Joins merge the remaining sources into the base table, in order.
	Joins []Join `json:"joins" yaml:"joins"`

	// Clean lists the ordered steps applied to the combined table.
	Clean []Transform `json:"clean" yaml:"clean"`

	Storage Storage       `json:"storage" yaml:"storage"`
	Export  Export        `json:"export" yaml:"export"`
	Report  Report        `json:"report" yaml:"report"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// RuntimeConfig controls load concurrency and sink batching.
type RuntimeConfig struct {
	// LoadWorkers bounds how many sources are read at once. Zero means one
	// worker per source.
	LoadWorkers int `json:"load_workers" yaml:"load_workers"`

	// BatchSize is the number of rows per storage CopyFrom call.
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Source identifies one input table.
type Source struct {
	// Name is how joins refer to this source.
	Name string `json:"name" yaml:"name"`

	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind" yaml:"kind"`

	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`

	// Parser configures how the bytes become a table. Kind defaults to csv.
	Parser Parser `json:"parser" yaml:"parser"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url" yaml:"url"`

	// Timeout is a Go duration string ("30s"). Empty uses the client default.
	Timeout            string            `json:"timeout" yaml:"timeout"`
	MaxRetries         int               `json:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Headers            map[string]string `json:"headers" yaml:"headers"`
}

// Parser selects how to parse a source. For csv, recognised options are
// comma (string), trim_space (bool), lazy_quotes (bool) and header_map
// (object of raw header -> column name).
type Parser struct {
	Kind    string  `json:"kind" yaml:"kind"`
	Options Options `json:"options" yaml:"options"`
}

// Join merges one source into the combined table. On names same-named key
// columns; LeftOn/RightOn pair keys whose names differ between sides.
type Join struct {
	Source   string   `json:"source" yaml:"source"`
	On       []string `json:"on" yaml:"on"`
	LeftOn   []string `json:"left_on" yaml:"left_on"`
	RightOn  []string `json:"right_on" yaml:"right_on"`
	How      string   `json:"how" yaml:"how"`
	Suffixes []string `json:"suffixes" yaml:"suffixes"`

	// CoalesceKeys fills left key cells of right-only rows from the right
	// keys when key names differ. Nil means true for outer joins.
	CoalesceKeys *bool `json:"coalesce_keys" yaml:"coalesce_keys"`

	// SkipNilKeys keeps rows with an absent key cell unmatched. By default
	// absent key cells match each other.
	SkipNilKeys bool `json:"skip_nil_keys" yaml:"skip_nil_keys"`
}

// Transform defines a single clean step.
type Transform struct {
	// Kind selects the step: drop_columns, rename, normalize, coerce,
	// impute, require, exclude, dedupe or validate.
	Kind string `json:"kind" yaml:"kind"`

	// Options is interpreted by the selected step.
	Options Options `json:"options" yaml:"options"`
}

// Storage selects the database sink. An empty kind (or "none") skips it.
type Storage struct {
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the backend connection string. For mongo it is the client URI.
	DSN string `json:"dsn" yaml:"dsn"`

	// Table is the destination table; "schema.table" where the backend has
	// schemas, "database.collection" for mongo.
	Table string `json:"table" yaml:"table"`

	// AutoCreateTable creates the table from the cleaned table's column
	// kinds before loading.
	AutoCreateTable bool `json:"auto_create_table" yaml:"auto_create_table"`
}

// Export lists file outputs. Empty paths are skipped.
type Export struct {
	CSV     string `json:"csv" yaml:"csv"`
	Parquet string `json:"parquet" yaml:"parquet"`
	XLSX    string `json:"xlsx" yaml:"xlsx"`

	// Compression applies to parquet: snappy (default), gzip, zstd or none.
	Compression string `json:"compression" yaml:"compression"`
}

// Report configures the chart output. An empty Dir skips it.
type Report struct {
	Dir  string `json:"dir" yaml:"dir"`
	TopN int    `json:"top_n" yaml:"top_n"`
}

// Options fetches typed values from free-form option maps. It performs only
// minimal coercion and returns the default when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers arrive as float64
// and YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		case int64:
			return int(n)
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns the string values of an object option. Non-string values
// are ignored. Missing keys give an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns the strings of an array option, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Sub returns a nested object option as Options, or an empty map.
func (o Options) Sub(key string) Options {
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return Options(m)
		}
	}
	return Options{}
}

// Any returns the raw value for key, or nil.
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

// Decode re-encodes the option at key and decodes it into dst, for nested
// blocks with a typed shape such as a validation contract.
func (o Options) Decode(key string, dst any) error {
	b, err := json.Marshal(o.Any(key))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// UnmarshalJSON decodes a missing or null options object to an empty map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML pipeline files.
func (o *Options) UnmarshalYAML(n *yaml.Node) error {
	var tmp map[string]any
	if err := n.Decode(&tmp); err != nil {
		return err
	}
	if tmp == nil {
		tmp = map[string]any{}
	}
	*o = Options(tmp)
	return nil
}
