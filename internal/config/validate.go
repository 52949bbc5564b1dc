package config

import (
	"fmt"
	"strings"

	"evadoption/internal/schema"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "joins[2].left_on").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error lets an Issue travel as an error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline statically checks a decoded pipeline and returns the
// issues found. It does not touch the filesystem or the network.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue
	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, errorf("job", "job must not be empty; it labels logs and metrics"))
	}
	issues = append(issues, validateSources(p.Sources)...)
	issues = append(issues, validateJoins(p.Sources, p.Joins)...)
	issues = append(issues, validateClean(p.Clean)...)
	issues = append(issues, validateStorage(p.Storage)...)
	issues = append(issues, validateExport(p.Export)...)
	issues = append(issues, validateRuntime(p.Runtime)...)
	return issues
}

// errorf and warnf build issues at path with a formatted message.
func errorf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

func warnf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

// validateSources requires at least one source, unique non-empty names and
// a usable location for each kind.
func validateSources(ss []Source) []Issue {
	var issues []Issue
	if len(ss) == 0 {
		return append(issues, errorf("sources", "at least one source is required"))
	}
	seen := map[string]bool{}
	for i, s := range ss {
		base := fmt.Sprintf("sources[%d]", i)
		name := strings.TrimSpace(s.Name)
		switch {
		case name == "":
			issues = append(issues, errorf(base+".name", "source name must not be empty"))
		case seen[name]:
			issues = append(issues, errorf(base+".name", "duplicate source name %q", name))
		}
		seen[name] = true

		switch s.Kind {
		case "file":
			if strings.TrimSpace(s.File.Path) == "" {
				issues = append(issues, errorf(base+".file.path", "file source requires a non-empty path"))
			}
		case "http":
			u := strings.TrimSpace(s.HTTP.URL)
			if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
				issues = append(issues, errorf(base+".http.url", "http source requires an http(s) url, got %q", u))
			}
			if s.HTTP.MaxRetries < 0 {
				issues = append(issues, errorf(base+".http.max_retries", "max_retries must not be negative"))
			}
		case "":
			issues = append(issues, errorf(base+".kind", "source kind must not be empty"))
		default:
			issues = append(issues, errorf(base+".kind", "unknown source kind %q (want file or http)", s.Kind))
		}

		if k := s.Parser.Kind; k != "" && k != "csv" {
			issues = append(issues, errorf(base+".parser.kind", "unknown parser kind %q; only csv is supported", k))
		}
	}
	return issues
}

// validateJoins checks every join against the source list. The first
// source is the base table: it cannot be joined, and every other source
// should be joined exactly once.
func validateJoins(ss []Source, js []Join) []Issue {
	var issues []Issue
	if len(ss) == 0 {
		return nil
	}
	names := map[string]bool{}
	for _, s := range ss {
		names[s.Name] = true
	}
	joined := map[string]bool{ss[0].Name: true}
	for i, j := range js {
		base := fmt.Sprintf("joins[%d]", i)
		switch {
		case !names[j.Source]:
			issues = append(issues, errorf(base+".source", "unknown source %q", j.Source))
		case j.Source == ss[0].Name:
			issues = append(issues, errorf(base+".source", "%q is the base table and cannot be joined into itself", j.Source))
		case joined[j.Source]:
			issues = append(issues, warnf(base+".source", "source %q is joined more than once", j.Source))
		}
		joined[j.Source] = true

		// on and left_on/right_on are alternatives.
		switch {
		case len(j.On) > 0:
			if len(j.LeftOn) > 0 || len(j.RightOn) > 0 {
				issues = append(issues, errorf(base, "set either on or left_on/right_on, not both"))
			}
		case len(j.LeftOn) == 0 || len(j.RightOn) == 0:
			issues = append(issues, errorf(base, "join needs on, or both left_on and right_on"))
		case len(j.LeftOn) != len(j.RightOn):
			issues = append(issues, errorf(base+".right_on", "left_on has %d keys but right_on has %d", len(j.LeftOn), len(j.RightOn)))
		}

		switch strings.ToLower(j.How) {
		case "", "outer", "inner", "left":
		default:
			issues = append(issues, errorf(base+".how", "unknown join type %q", j.How))
		}
		if n := len(j.Suffixes); n != 0 && n != 2 {
			issues = append(issues, errorf(base+".suffixes", "suffixes needs exactly two entries, got %d", n))
		}
	}
	for i, s := range ss {
		if !joined[s.Name] {
			issues = append(issues, warnf(fmt.Sprintf("sources[%d]", i), "source %q is loaded but never joined", s.Name))
		}
	}
	return issues
}

// KnownSteps lists the clean step kinds the pipeline can build.
var KnownSteps = []string{
	"drop_columns", "rename", "normalize", "coerce", "impute",
	"require", "exclude", "dedupe", "validate",
}

// validateClean checks step kinds and the options each step reads. Options
// that make a step a no-op are warnings, options it cannot run with are
// errors.
func validateClean(ts []Transform) []Issue {
	var issues []Issue
	if len(ts) == 0 {
		return append(issues, warnf("clean", "no clean steps configured; the merged table is written as-is"))
	}
	known := map[string]bool{}
	for _, k := range KnownSteps {
		known[k] = true
	}
	for i, t := range ts {
		base := fmt.Sprintf("clean[%d]", i)
		if !known[t.Kind] {
			issues = append(issues, errorf(base+".kind", "unknown clean step %q", t.Kind))
			continue
		}
		opts := base + ".options"
		switch t.Kind {
		case "drop_columns", "require":
			if len(t.Options.StringSlice(stepListKey(t.Kind))) == 0 {
				issues = append(issues, warnf(opts, "%s has no %s; it does nothing", t.Kind, stepListKey(t.Kind)))
			}
		case "rename":
			if len(t.Options.StringMap("columns")) == 0 && !t.Options.Bool("defaults", false) {
				issues = append(issues, warnf(opts, "rename has no columns and defaults is false; it does nothing"))
			}
		case "coerce":
			for col, typ := range t.Options.StringMap("types") {
				switch typ {
				case "int", "float", "string":
				default:
					issues = append(issues, errorf(opts+".types", "column %q has unknown type %q", col, typ))
				}
			}
		case "impute":
			switch t.Options.String("on_empty", "error") {
			case "error", "skip":
			default:
				issues = append(issues, errorf(opts+".on_empty", "on_empty must be error or skip"))
			}
			if !t.Options.Bool("auto", false) && len(t.Options.StringSlice("numeric")) == 0 && len(t.Options.StringSlice("categorical")) == 0 {
				issues = append(issues, warnf(opts, "impute has no numeric or categorical columns and auto is false"))
			}
			if ex := t.Options.Sub("exclude_rows"); len(ex) > 0 && ex.String("column", "") == "" {
				issues = append(issues, errorf(opts+".exclude_rows.column", "exclude_rows needs a column"))
			}
		case "exclude":
			if t.Options.String("column", "") == "" {
				issues = append(issues, errorf(opts+".column", "exclude needs a column"))
			}
		case "dedupe":
			if len(t.Options.StringSlice("keys")) == 0 {
				issues = append(issues, errorf(opts+".keys", "dedupe needs at least one key"))
			}
			switch t.Options.String("policy", "keep-last") {
			case "keep-first", "keep-last", "most-complete":
			default:
				issues = append(issues, errorf(opts+".policy", "unknown dedupe policy %q", t.Options.String("policy", "")))
			}
		case "validate":
			if t.Options.Any("contract") == nil {
				issues = append(issues, warnf(opts+".contract", "validate has no contract; it checks nothing"))
				break
			}
			var c schema.Contract
			if err := t.Options.Decode("contract", &c); err != nil {
				issues = append(issues, errorf(opts+".contract", "contract is not valid: %v", err))
			} else if len(c.Fields) == 0 {
				issues = append(issues, warnf(opts+".contract", "contract has no fields; it checks nothing"))
			}
			switch t.Options.String("policy", "lenient") {
			case "lenient", "strict":
			default:
				issues = append(issues, errorf(opts+".policy", "policy must be lenient or strict"))
			}
		}
	}
	return issues
}

// stepListKey names the list option of drop_columns and require.
func stepListKey(kind string) string {
	if kind == "require" {
		return "fields"
	}
	return "columns"
}

// KnownStorage lists the storage kinds with a registered backend.
var KnownStorage = []string{"postgres", "mysql", "mssql", "sqlite", "mongo"}

// validateStorage checks the sink only when one is configured.
func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" || s.Kind == "none" {
		return nil
	}
	found := false
	for _, k := range KnownStorage {
		found = found || k == s.Kind
	}
	if !found {
		issues = append(issues, errorf("storage.kind", "unknown storage kind %q", s.Kind))
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, errorf("storage.db.dsn", "storage.db.dsn must not be empty"))
	}
	if strings.TrimSpace(s.DB.Table) == "" {
		issues = append(issues, errorf("storage.db.table", "storage.db.table must not be empty"))
	}
	if s.Kind == "mongo" && s.DB.Table != "" && !strings.Contains(s.DB.Table, ".") {
		issues = append(issues, errorf("storage.db.table", "mongo table must be database.collection"))
	}
	return issues
}

// validateExport accepts only the parquet codecs the writer knows.
func validateExport(e Export) []Issue {
	switch strings.ToLower(e.Compression) {
	case "", "snappy", "gzip", "zstd", "none", "uncompressed":
		return nil
	}
	return []Issue{errorf("export.compression", "unknown parquet compression %q", e.Compression)}
}

// validateRuntime rejects negative sizes; zero means the default.
func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.LoadWorkers < 0 {
		issues = append(issues, errorf("runtime.load_workers", "load_workers must not be negative"))
	}
	if r.BatchSize < 0 {
		issues = append(issues, errorf("runtime.batch_size", "batch_size must not be negative"))
	}
	return issues
}
