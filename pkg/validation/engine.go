// Package validation evaluates descriptor rules against entity state and maps
// server-side validation payloads back onto descriptor properties.
package validation

import (
	"github.com/goliatone/go-formbind/pkg/model"
)

// Validator checks a state against a descriptor set.
type Validator interface {
	Validate(fields []model.Field, state model.State) Result
}

// Result is the ordered outcome of a validation pass.
type Result struct {
	Errors []model.FieldError `json:"errors,omitempty"`
}

// Valid reports whether no field failed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// ByProperty indexes the first message per property.
func (r Result) ByProperty() map[string]string {
	if len(r.Errors) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Errors))
	for _, fe := range r.Errors {
		if _, exists := out[fe.Property]; exists {
			continue
		}
		out[fe.Property] = fe.Message
	}
	return out
}

// Engine is the default Validator. It walks descriptors in order: a
// required descriptor whose value is missing, nil, or the empty string yields
// model.MessageRequired; otherwise the custom rule, when present, decides.
type Engine struct{}

var _ Validator = Engine{}

// Validate evaluates every descriptor against state.
func (Engine) Validate(fields []model.Field, state model.State) Result {
	var result Result
	for _, field := range fields {
		value, _ := state.Get(field.Property)
		if field.Required && model.IsEmpty(value) {
			result.Errors = append(result.Errors, model.FieldError{
				Property: field.Property,
				Message:  model.MessageRequired,
			})
			continue
		}
		if field.Validate == nil {
			continue
		}
		if msg := field.Validate(value); msg != "" {
			result.Errors = append(result.Errors, model.FieldError{
				Property: field.Property,
				Message:  msg,
			})
		}
	}
	return result
}

// Validate runs the default Engine.
func Validate(fields []model.Field, state model.State) Result {
	return Engine{}.Validate(fields, state)
}
