// Package declare reads form declarations from YAML (or JSON) documents and
// turns them into descriptor sets through the builder.
//
// A document declares one form and, optionally, the dictionaries its select
// fields use:
//
//	resource: users
//	params:
//	  tenant: acme
//	fields:
//	  - property: name
//	    required: true
//	    rules:
//	      - {kind: minLength, param: "2"}
//	  - property: role
//	    type: select
//	    source: roles
//	dictionaries:
//	  roles:
//	    - {value: a, label: Admin}
package declare

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formbind/internal/labels"
	"github.com/goliatone/go-formbind/pkg/builder"
	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
	"github.com/goliatone/go-formbind/pkg/visibility/expr"
)

// Form is a parsed form declaration.
type Form struct {
	Resource     string                    `yaml:"resource" json:"resource"`
	Title        string                    `yaml:"title" json:"title,omitempty"`
	Params       map[string]any            `yaml:"params" json:"params,omitempty"`
	Fields       []Field                   `yaml:"fields" json:"fields"`
	Dictionaries map[string][]model.Option `yaml:"dictionaries" json:"dictionaries,omitempty"`

	// Source is the file the form was read from, when any.
	Source string `yaml:"-" json:"-"`
}

// Field declares one descriptor. Type defaults to text.
type Field struct {
	Property    string                 `yaml:"property" json:"property"`
	Type        model.FieldType        `yaml:"type" json:"type,omitempty"`
	Label       string                 `yaml:"label" json:"label,omitempty"`
	Placeholder string                 `yaml:"placeholder" json:"placeholder,omitempty"`
	Tooltip     string                 `yaml:"tooltip" json:"tooltip,omitempty"`
	Required    bool                   `yaml:"required" json:"required,omitempty"`
	Disabled    bool                   `yaml:"disabled" json:"disabled,omitempty"`
	Default     any                    `yaml:"default" json:"default,omitempty"`
	Options     []model.Option         `yaml:"options" json:"options,omitempty"`
	Source      string                 `yaml:"source" json:"source,omitempty"`
	AllowNull   bool                   `yaml:"allowNull" json:"allowNull,omitempty"`
	NullLabel   string                 `yaml:"nullLabel" json:"nullLabel,omitempty"`
	Widget      string                 `yaml:"widget" json:"widget,omitempty"`
	VisibleWhen string                 `yaml:"visibleWhen" json:"visibleWhen,omitempty"`
	TextArea    *model.TextAreaOptions `yaml:"textarea" json:"textarea,omitempty"`
	File        *FileSpec              `yaml:"file" json:"file,omitempty"`
	Rules       []Rule                 `yaml:"rules" json:"rules,omitempty"`
	Metadata    map[string]string      `yaml:"metadata" json:"metadata,omitempty"`
}

// FileSpec mirrors builder.FileSpec in declarative form.
type FileSpec struct {
	Accept    string          `yaml:"accept" json:"accept,omitempty"`
	MaxSizeKB int             `yaml:"maxSizeKB" json:"maxSizeKB,omitempty"`
	Preview   bool            `yaml:"preview" json:"preview,omitempty"`
	Avatar    bool            `yaml:"avatar" json:"avatar,omitempty"`
	Crop      *model.CropSize `yaml:"crop" json:"crop,omitempty"`
}

// Rule names a built-in validation rule, see validation.FromRule.
type Rule struct {
	Kind  string `yaml:"kind" json:"kind"`
	Param string `yaml:"param" json:"param"`
}

// Builder replays the declaration on a new builder. Labels missing from the
// declaration are derived from the property name.
func (f *Form) Builder() (*builder.Builder, error) {
	if f == nil {
		return nil, fmt.Errorf("declare: form is nil")
	}
	b := builder.New(builder.WithLabeler(labels.Humanize))
	for i, decl := range f.Fields {
		if err := apply(b, decl); err != nil {
			return nil, fmt.Errorf("declare: %s field %d (%q): %w", f.name(), i, decl.Property, err)
		}
	}
	return b, nil
}

// Build returns the declared descriptors.
func (f *Form) Build() ([]model.Field, error) {
	b, err := f.Builder()
	if err != nil {
		return nil, err
	}
	fields, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("declare: %s: %w", f.name(), err)
	}
	return fields, nil
}

// BaseParams converts the declared params for orchestrator.WithBaseParams.
func (f *Form) BaseParams() dataaccess.Params {
	if f == nil || len(f.Params) == 0 {
		return nil
	}
	out := make(dataaccess.Params, len(f.Params))
	for k, v := range f.Params {
		out[k] = v
	}
	return out
}

func (f *Form) name() string {
	if f.Source != "" {
		return f.Source
	}
	return f.Resource
}

func apply(b *builder.Builder, decl Field) error {
	property := strings.TrimSpace(decl.Property)
	if property == "" {
		return builder.ErrEmptyProperty
	}
	if b.Has(property) {
		return fmt.Errorf("duplicate property %q", property)
	}

	fb := b.FieldFor(property)
	switch decl.Type {
	case "", model.FieldTypeText:
	case model.FieldTypePassword:
		fb.Password()
	case model.FieldTypeNumber:
		fb.Number()
	case model.FieldTypeBoolean:
		fb.Boolean()
	case model.FieldTypeDate:
		fb.Date()
	case model.FieldTypeChipList:
		fb.ChipList()
	case model.FieldTypeCustom:
		if strings.TrimSpace(decl.Widget) == "" {
			return fmt.Errorf("custom field requires a widget")
		}
		fb.WithCustomControl(decl.Widget)
	case model.FieldTypeSelect:
		switch {
		case decl.Source != "" && decl.Options != nil:
			return builder.ErrSelectSource
		case decl.Source != "":
			fb.SelectWithRemoteSource(decl.Source)
		default:
			options := decl.Options
			if options == nil {
				options = []model.Option{}
			}
			fb.Select(options)
		}
	case model.FieldTypeFile:
		spec := builder.FileSpec{}
		if decl.File != nil {
			spec = builder.FileSpec{
				Accept:           decl.File.Accept,
				MaxSizeKB:        decl.File.MaxSizeKB,
				WithImagePreview: decl.File.Preview,
				IsAvatar:         decl.File.Avatar,
				CropToSize:       decl.File.Crop,
			}
		}
		fb.File(spec)
	default:
		return fmt.Errorf("unknown type %q", decl.Type)
	}

	if decl.Type != model.FieldTypeSelect && (decl.Source != "" || decl.Options != nil) {
		return builder.ErrOptionsOnNonSelect
	}

	if decl.Label != "" {
		fb.WithLabel(decl.Label)
	}
	if decl.Placeholder != "" {
		fb.WithPlaceholder(decl.Placeholder)
	}
	if decl.Tooltip != "" {
		fb.WithTooltip(decl.Tooltip)
	}
	if decl.Required {
		fb.Required()
	}
	if decl.Disabled {
		fb.Disable()
	}
	if decl.AllowNull {
		fb.AllowNull(decl.NullLabel)
	}
	if decl.Widget != "" && decl.Type != model.FieldTypeCustom {
		fb.WithMetadata("widget", decl.Widget)
	}
	if rule := strings.TrimSpace(decl.VisibleWhen); rule != "" {
		if _, err := expr.Compile(rule); err != nil {
			return fmt.Errorf("visibleWhen: %w", err)
		}
		fb.VisibleWhen(rule)
	}
	if decl.TextArea != nil {
		fb.TextArea(decl.TextArea)
	}
	if decl.Default != nil {
		fb.WithDefaultValue(decl.Default)
	}
	for key, value := range decl.Metadata {
		fb.WithMetadata(key, value)
	}

	if len(decl.Rules) > 0 {
		rules := make([]model.ValidateFunc, 0, len(decl.Rules))
		for _, rule := range decl.Rules {
			fn, err := validation.FromRule(rule.Kind, rule.Param)
			if err != nil {
				return err
			}
			rules = append(rules, fn)
		}
		fb.WithValidation(validation.Chain(rules...))
	}
	return nil
}
