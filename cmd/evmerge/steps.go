package main

import (
	"fmt"
	"log"
	"strings"

	"evadoption/internal/config"
	"evadoption/internal/schema"
	"evadoption/internal/transformer"
	"evadoption/internal/transformer/builtin"
)

// stepHooks receive events from clean steps for the run summary. Nil hooks
// are skipped.
type stepHooks struct {
	// onCoerceFail sees every cell coerce could not convert.
	onCoerceFail func(column string, row int, raw any)
	// onImpute sees the fill count of every imputed column.
	onImpute func(filled int)
	// onViolation is called once per contract violation.
	onViolation func()
}

// buildTransformers turns the configured clean list into a chain, in order.
func buildTransformers(ts []config.Transform, hooks stepHooks) (transformer.Chain, error) {
	var c transformer.Chain
	for i, t := range ts {
		tr, err := buildStep(t, hooks)
		if err != nil {
			return nil, fmt.Errorf("clean[%d] %s: %w", i, t.Kind, err)
		}
		c = append(c, transformer.Step{Kind: t.Kind, Transformer: tr})
	}
	return c, nil
}

// buildStep builds one clean step from its options. Option names match the
// pipeline file; see config.Transform for the step list.
func buildStep(t config.Transform, hooks stepHooks) (transformer.Transformer, error) {
	o := t.Options
	switch t.Kind {
	case "drop_columns":
		return builtin.DropColumns{Columns: o.StringSlice("columns")}, nil

	case "rename":
		// Explicit columns override the canonical vocabulary.
		cols := map[string]string{}
		if o.Bool("defaults", false) {
			for k, v := range config.DefaultRename() {
				cols[k] = v
			}
		}
		for k, v := range o.StringMap("columns") {
			cols[k] = v
		}
		return builtin.Rename{Columns: cols}, nil

	case "normalize":
		return builtin.Normalize{}, nil

	case "coerce":
		return builtin.Coerce{
			Types:  o.StringMap("types"),
			Auto:   o.Bool("auto", false),
			OnFail: hooks.onCoerceFail,
		}, nil

	case "impute":
		m := builtin.Impute{
			Numeric:     o.StringSlice("numeric"),
			Categorical: o.StringSlice("categorical"),
			Auto:        o.Bool("auto", false),
			Keys:        o.StringSlice("keys"),
			SkipEmpty:   o.String("on_empty", "error") == "skip",
			Report: func(fl builtin.Fill) {
				if fl.Skipped {
					log.Printf("impute: column=%q skipped: no present values", fl.Column)
					return
				}
				log.Printf("impute: column=%q method=%s fill=%v filled=%d", fl.Column, fl.Method, fl.Value, fl.Filled)
				if hooks.onImpute != nil {
					hooks.onImpute(fl.Filled)
				}
			},
		}
		// Key columns identify a row and are never filled.
		if m.Auto && len(m.Keys) == 0 {
			m.Keys = []string{"Region", "Region Code", "Year"}
		}
		if ex := o.Sub("exclude_rows"); len(ex) > 0 {
			m.ExcludeRows = &builtin.RowMatch{Column: ex.String("column", ""), Values: ex.StringSlice("values")}
		}
		return m, nil

	case "require":
		return builtin.Require{Fields: o.StringSlice("fields")}, nil

	case "exclude":
		vals := o.StringSlice("values")
		// Without values, exclude drops the World aggregate.
		if len(vals) == 0 {
			vals = []string{config.DefaultExclude}
		}
		return builtin.Exclude{Column: o.String("column", ""), Values: vals}, nil

	case "dedupe":
		return builtin.DeDup{
			Keys:         o.StringSlice("keys"),
			Policy:       o.String("policy", "keep-last"),
			PreferFields: o.StringSlice("prefer"),
		}, nil

	case "validate":
		var contract schema.Contract
		if o.Any("contract") != nil {
			if err := o.Decode("contract", &contract); err != nil {
				return nil, fmt.Errorf("decode contract: %w", err)
			}
		}
		// Only the first thisMany violations are logged.
		shown := 0
		return builtin.Validate{
			Contract: contract,
			Policy:   strings.ToLower(o.String("policy", "lenient")),
			Report: func(v builtin.Violation) {
				if hooks.onViolation != nil {
					hooks.onViolation()
				}
				shown++
				if shown <= thisMany {
					log.Printf("validate: contract=%s %s", contract.Name, v)
				}
				if shown == thisMany+1 {
					log.Printf("validate: ... additional violations suppressed ...")
				}
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown clean step %q", t.Kind)
}
