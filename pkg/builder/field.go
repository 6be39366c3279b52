package builder

import (
	"strings"

	"github.com/goliatone/go-formbind/pkg/model"
)

const (
	defaultAccept    = "*"
	imageAccept      = "image/*"
	defaultMaxSizeKB = 4096
	bytesPerKB       = 1000
)

// Extension is a reusable declaration fragment applied with
// FieldBuilder.Apply.
type Extension func(*FieldBuilder) *FieldBuilder

// FileSpec configures File. Zero values select the defaults: any media type
// and a 4096 KB limit.
type FileSpec struct {
	Accept           string
	MaxSizeKB        int
	WithImagePreview bool
	IsAvatar         bool
	CropToSize       *model.CropSize
}

// FieldBuilder is a handle over one descriptor of a Builder. Every mutator
// returns the handle so declarations chain.
type FieldBuilder struct {
	builder *Builder
	field   *model.Field
}

// Descriptor returns the live descriptor. Two handles obtained for the same
// property return the same pointer.
func (f *FieldBuilder) Descriptor() *model.Field {
	return f.field
}

// Builder returns the owning builder.
func (f *FieldBuilder) Builder() *Builder {
	return f.builder
}

// FieldFor moves the chain to another property of the same builder.
func (f *FieldBuilder) FieldFor(property string) *FieldBuilder {
	return f.builder.FieldFor(property)
}

// Apply runs extensions in order against the handle.
func (f *FieldBuilder) Apply(extensions ...Extension) *FieldBuilder {
	current := f
	for _, ext := range extensions {
		if ext == nil {
			continue
		}
		if next := ext(current); next != nil {
			current = next
		}
	}
	return current
}

// WithLabel sets the display label.
func (f *FieldBuilder) WithLabel(label string) *FieldBuilder {
	f.field.Label = label
	return f
}

// WithPlaceholder sets the placeholder hint.
func (f *FieldBuilder) WithPlaceholder(placeholder string) *FieldBuilder {
	f.field.Placeholder = placeholder
	return f
}

// WithTooltip sets the help tooltip.
func (f *FieldBuilder) WithTooltip(tooltip string) *FieldBuilder {
	f.field.Tooltip = tooltip
	return f
}

// Select turns the field into a select with a static option list. A nil
// list declares no source at all and fails Build.
func (f *FieldBuilder) Select(options []model.Option) *FieldBuilder {
	f.field.Type = model.FieldTypeSelect
	if options == nil {
		f.field.Options = nil
		return f
	}
	f.field.Options = append([]model.Option{}, options...)
	return f
}

// SelectWithRemoteSource turns the field into a select whose options are
// fetched from source when the form initialises.
func (f *FieldBuilder) SelectWithRemoteSource(source string) *FieldBuilder {
	f.field.Type = model.FieldTypeSelect
	f.field.RemoteSource = strings.TrimSpace(source)
	return f
}

// AllowNull lets a select submit no value, shown with label.
func (f *FieldBuilder) AllowNull(label string) *FieldBuilder {
	f.field.AllowNull = true
	f.field.NullLabel = label
	return f
}

// Disable renders the control read-only.
func (f *FieldBuilder) Disable() *FieldBuilder {
	f.field.Disabled = true
	return f
}

// Password sets the type to password.
func (f *FieldBuilder) Password() *FieldBuilder {
	f.field.Type = model.FieldTypePassword
	return f
}

// Boolean sets the type to boolean.
func (f *FieldBuilder) Boolean() *FieldBuilder {
	f.field.Type = model.FieldTypeBoolean
	return f
}

// Number sets the type to number.
func (f *FieldBuilder) Number() *FieldBuilder {
	f.field.Type = model.FieldTypeNumber
	return f
}

// Date sets the type to date. Values are ISO-8601 strings.
func (f *FieldBuilder) Date() *FieldBuilder {
	f.field.Type = model.FieldTypeDate
	return f
}

// ChipList sets the type to chip-list.
func (f *FieldBuilder) ChipList() *FieldBuilder {
	f.field.Type = model.FieldTypeChipList
	return f
}

// WithCustomControl sets the type to custom and names the widget a renderer
// should use for it.
func (f *FieldBuilder) WithCustomControl(widget string) *FieldBuilder {
	f.field.Type = model.FieldTypeCustom
	f.field.Widget = strings.TrimSpace(widget)
	return f
}

// Required marks the field as mandatory: nil, missing, and empty string
// values fail validation.
func (f *FieldBuilder) Required() *FieldBuilder {
	f.field.Required = true
	return f
}

// VisibleWhen shows the field only while rule holds for the current values.
// Hidden fields are neither rendered nor validated; their values stay in the
// payload.
func (f *FieldBuilder) VisibleWhen(rule string) *FieldBuilder {
	f.field.VisibleWhen = strings.TrimSpace(rule)
	return f
}

// WithValidation attaches a custom rule. A later call replaces the rule;
// compose rules with validation.Chain.
func (f *FieldBuilder) WithValidation(fn model.ValidateFunc) *FieldBuilder {
	f.field.Validate = fn
	return f
}

// File sets the type to file. Requesting an image preview with the default
// accept pattern narrows it to images, and avatars always preview.
func (f *FieldBuilder) File(spec FileSpec) *FieldBuilder {
	accept := strings.TrimSpace(spec.Accept)
	if accept == "" {
		accept = defaultAccept
	}
	if spec.WithImagePreview && accept == defaultAccept {
		accept = imageAccept
	}
	maxKB := spec.MaxSizeKB
	if maxKB <= 0 {
		maxKB = defaultMaxSizeKB
	}

	opts := &model.FileOptions{
		Accept:  accept,
		MaxSize: int64(maxKB) * bytesPerKB,
		Preview: spec.WithImagePreview || spec.IsAvatar,
		Avatar:  spec.IsAvatar,
	}
	if spec.CropToSize != nil {
		crop := *spec.CropToSize
		opts.Crop = &crop
	}

	f.field.Type = model.FieldTypeFile
	f.field.File = opts
	return f
}

// TextArea marks a text field as multiline. opts may be nil.
func (f *FieldBuilder) TextArea(opts *model.TextAreaOptions) *FieldBuilder {
	hints := &model.TextAreaOptions{}
	if opts != nil {
		*hints = *opts
	}
	f.field.TextArea = hints
	return f
}

// WithDefaultValue sets the value seeded into newly created entities.
func (f *FieldBuilder) WithDefaultValue(value any) *FieldBuilder {
	f.field.Default = model.CloneValue(value)
	f.field.HasDefault = true
	return f
}

// WithMetadata attaches a renderer hint.
func (f *FieldBuilder) WithMetadata(key, value string) *FieldBuilder {
	key = strings.TrimSpace(key)
	if key == "" {
		return f
	}
	if f.field.Metadata == nil {
		f.field.Metadata = make(map[string]string)
	}
	f.field.Metadata[key] = value
	return f
}
