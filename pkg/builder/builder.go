package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/pkg/model"
)

var (
	// ErrEmptyProperty is reported by Build when FieldFor received a blank
	// property name.
	ErrEmptyProperty = errors.New("builder: property is required")
	// ErrSelectSource is reported when a select descriptor declares both or
	// neither of a static option list and a remote source.
	ErrSelectSource = errors.New("builder: select field requires exactly one of static options or remote source")
	// ErrOptionsOnNonSelect is reported when a non-select descriptor carries
	// an option source, usually because a later call replaced the type.
	ErrOptionsOnNonSelect = errors.New("builder: option source declared on non-select field")
)

// Option configures a Builder.
type Option func(*Builder)

// WithLabeler derives labels for descriptors that never received one.
func WithLabeler(labeler func(string) string) Option {
	return func(b *Builder) {
		b.labeler = labeler
	}
}

// Builder owns an ordered descriptor collection keyed by property name.
type Builder struct {
	fields  []*model.Field
	index   map[string]*model.Field
	labeler func(string) string
	err     error
}

// New constructs an empty Builder.
func New(options ...Option) *Builder {
	b := &Builder{index: make(map[string]*model.Field)}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(b)
	}
	return b
}

// FieldFor returns a handle to the descriptor for property, creating a text
// descriptor when none exists. Repeated calls never duplicate descriptors.
func (b *Builder) FieldFor(property string) *FieldBuilder {
	name := strings.TrimSpace(property)
	if name == "" {
		b.err = appendError(b.err, ErrEmptyProperty)
		return &FieldBuilder{builder: b, field: &model.Field{Type: model.FieldTypeText}}
	}
	if field, ok := b.index[name]; ok {
		return &FieldBuilder{builder: b, field: field}
	}

	field := &model.Field{
		Property: name,
		Order:    len(b.fields),
		Type:     model.FieldTypeText,
	}
	b.fields = append(b.fields, field)
	b.index[name] = field
	return &FieldBuilder{builder: b, field: field}
}

// Has reports whether a descriptor exists for property.
func (b *Builder) Has(property string) bool {
	_, ok := b.index[strings.TrimSpace(property)]
	return ok
}

// Len returns the number of declared descriptors.
func (b *Builder) Len() int {
	return len(b.fields)
}

// Properties lists property names in insertion order.
func (b *Builder) Properties() []string {
	out := make([]string, 0, len(b.fields))
	for _, field := range b.fields {
		out = append(out, field.Property)
	}
	return out
}

// SetSelectOptions replaces the static option list of a select descriptor.
func (b *Builder) SetSelectOptions(property string, options []model.Option) error {
	field, ok := b.index[strings.TrimSpace(property)]
	if !ok {
		return fmt.Errorf("builder: field %q not declared", property)
	}
	if field.Type != model.FieldTypeSelect {
		return fmt.Errorf("builder: field %q is %s, not select", property, field.Type)
	}
	field.Options = append([]model.Option{}, options...)
	return nil
}

// Defaults returns the default values declared for new entities.
func (b *Builder) Defaults() map[string]any {
	out := make(map[string]any)
	for _, field := range b.fields {
		if field.HasDefault {
			out[field.Property] = model.CloneValue(field.Default)
		}
	}
	return out
}

// Build validates the declarations and returns deep copies in insertion
// order.
func (b *Builder) Build() ([]model.Field, error) {
	if b.err != nil {
		return nil, b.err
	}

	out := make([]model.Field, 0, len(b.fields))
	for i, field := range b.fields {
		if err := validateField(*field); err != nil {
			return nil, err
		}
		clone := field.Clone()
		clone.Order = i
		if clone.Label == "" && b.labeler != nil {
			clone.Label = b.labeler(clone.Property)
		}
		out = append(out, clone)
	}
	return out, nil
}

// MustBuild panics when Build fails. Intended for package-level wiring.
func (b *Builder) MustBuild() []model.Field {
	fields, err := b.Build()
	if err != nil {
		panic(err)
	}
	return fields
}

func validateField(field model.Field) error {
	if !field.Type.Valid() {
		return fmt.Errorf("builder: field %q has unknown type %q", field.Property, field.Type)
	}
	hasStatic := field.Options != nil
	hasRemote := strings.TrimSpace(field.RemoteSource) != ""

	if field.Type == model.FieldTypeSelect {
		if hasStatic == hasRemote {
			return fmt.Errorf("%w (field %q)", ErrSelectSource, field.Property)
		}
		return nil
	}
	if hasStatic || hasRemote {
		return fmt.Errorf("%w (field %q is %s)", ErrOptionsOnNonSelect, field.Property, field.Type)
	}
	if field.Type == model.FieldTypeFile && field.File == nil {
		return fmt.Errorf("builder: file field %q has no file options", field.Property)
	}
	return nil
}

func appendError(existing, next error) error {
	if existing == nil {
		return next
	}
	return fmt.Errorf("%v; %w", existing, next)
}
