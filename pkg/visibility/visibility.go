// Package visibility decides which descriptors are shown for the current
// form values. A descriptor with an empty VisibleWhen rule is always shown.
package visibility

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Evaluator reports whether rule holds for ctx.
type Evaluator interface {
	Eval(rule string, ctx Context) (bool, error)
}

// Context carries the inputs rules can reference: current values by
// property, and caller supplied Extras (roles, feature flags) under the
// "extras." prefix.
type Context struct {
	Values map[string]any
	Extras map[string]any
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(rule string, ctx Context) (bool, error)

func (fn EvaluatorFunc) Eval(rule string, ctx Context) (bool, error) {
	return fn(rule, ctx)
}

// Hidden returns the properties whose rule evaluates to false. A rule that
// fails to evaluate leaves its field visible and contributes to the joined
// error.
func Hidden(fields []model.Field, ctx Context, evaluator Evaluator) (map[string]bool, error) {
	if evaluator == nil {
		return nil, nil
	}
	var (
		hidden map[string]bool
		errs   []error
	)
	for _, field := range fields {
		if field.VisibleWhen == "" {
			continue
		}
		visible, err := evaluator.Eval(field.VisibleWhen, ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("visibility: %s: %w", field.Property, err))
			continue
		}
		if !visible {
			if hidden == nil {
				hidden = make(map[string]bool)
			}
			hidden[field.Property] = true
		}
	}
	return hidden, errors.Join(errs...)
}

// Visible returns the fields not listed in hidden, preserving order.
func Visible(fields []model.Field, hidden map[string]bool) []model.Field {
	if len(hidden) == 0 {
		return fields
	}
	out := make([]model.Field, 0, len(fields))
	for _, field := range fields {
		if !hidden[field.Property] {
			out = append(out, field)
		}
	}
	return out
}
