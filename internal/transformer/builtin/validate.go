package builtin

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"evadoption/internal/frame"
	"evadoption/internal/schema"
)

// ErrContractViolation is returned by a strict Validate that found problems.
var ErrContractViolation = errors.New("validate: contract violated")

// Violation is one failed check. Count is the number of offending cells
// (zero for a missing column) and Sample one offending value.
type Violation struct {
	Column string
	Rule   string
	Count  int
	Sample any
}

// String renders the violation for log lines.
func (v Violation) String() string {
	if v.Sample != nil {
		return fmt.Sprintf("%s: %s (%d cells, e.g. %v)", v.Column, v.Rule, v.Count, v.Sample)
	}
	return fmt.Sprintf("%s: %s (%d cells)", v.Column, v.Rule, v.Count)
}

// Validate checks the cleaned table against a contract without changing
// it. Policy "lenient" (default) logs violations; "strict" also fails.
type Validate struct {
	Contract schema.Contract
	Policy   string
	Report   func(Violation)
}

// Apply reports every violation and, under the strict policy, fails with
// ErrContractViolation. The frame is returned unchanged.
func (v Validate) Apply(f *frame.Frame) (*frame.Frame, error) {
	violations := v.Check(f)
	for _, vi := range violations {
		if v.Report != nil {
			v.Report(vi)
		} else {
			log.Printf("validate: contract=%s %s", v.Contract.Name, vi)
		}
	}
	if len(violations) > 0 && strings.EqualFold(v.Policy, "strict") {
		return nil, fmt.Errorf("%w: %s: %d violations, first: %s", ErrContractViolation, v.Contract.Name, len(violations), violations[0])
	}
	return f, nil
}

// Check returns every violation of the contract, in field order.
func (v Validate) Check(f *frame.Frame) []Violation {
	var out []Violation
	for _, fd := range v.Contract.Fields {
		col, err := f.Column(fd.Name)
		if err != nil {
			if fd.Required {
				out = append(out, Violation{Column: fd.Name, Rule: "required column missing"})
			}
			continue
		}
		// Each rule is counted once per column with its first offender.
		if fd.Required {
			if n, sample := countWhere(col, func(x any) bool { return x == nil }); n > 0 {
				out = append(out, Violation{Column: fd.Name, Rule: "required value absent", Count: n, Sample: sample})
			}
		}
		if fd.Type != "" {
			if n, sample := countWhere(col, func(x any) bool { return x != nil && !typeMatches(fd.Type, x) }); n > 0 {
				out = append(out, Violation{Column: fd.Name, Rule: "not of type " + fd.Type, Count: n, Sample: sample})
			}
		}
		if len(fd.Enum) > 0 {
			allowed := stringSet(fd.Enum)
			if n, sample := countWhere(col, func(x any) bool {
				s, ok := frame.KeyString(x)
				return ok && !allowed[s]
			}); n > 0 {
				out = append(out, Violation{Column: fd.Name, Rule: "value outside enum", Count: n, Sample: sample})
			}
		}
		if len(fd.Forbid) > 0 {
			forbidden := stringSet(fd.Forbid)
			if n, sample := countWhere(col, func(x any) bool {
				s, ok := frame.KeyString(x)
				return ok && forbidden[s]
			}); n > 0 {
				out = append(out, Violation{Column: fd.Name, Rule: "forbidden value", Count: n, Sample: sample})
			}
		}
	}
	return out
}

// typeMatches reports whether a present cell fits a contract type. "number"
// accepts ints and floats; unknown types accept everything.
func typeMatches(typ string, v any) bool {
	switch strings.ToLower(typ) {
	case "int":
		_, ok := v.(int64)
		return ok
	case "float", "number":
		_, ok := frame.ToFloat(v)
		return ok
	case "string", "text":
		_, ok := v.(string)
		return ok
	}
	return true
}

// countWhere counts the cells bad accepts and returns the first of them.
func countWhere(col []any, bad func(any) bool) (int, any) {
	n := 0
	var sample any
	for _, x := range col {
		if bad(x) {
			if n == 0 {
				sample = x
			}
			n++
		}
	}
	return n, sample
}

func stringSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
