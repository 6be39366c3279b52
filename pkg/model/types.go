package model

// FieldType enumerates the control kinds a descriptor can declare.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypePassword FieldType = "password"
	FieldTypeNumber   FieldType = "number"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDate     FieldType = "date"
	FieldTypeSelect   FieldType = "select"
	FieldTypeFile     FieldType = "file"
	FieldTypeCustom   FieldType = "custom"
	FieldTypeChipList FieldType = "chip-list"
)

// Valid reports whether t is one of the declared field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeText, FieldTypePassword, FieldTypeNumber, FieldTypeBoolean,
		FieldTypeDate, FieldTypeSelect, FieldTypeFile, FieldTypeCustom, FieldTypeChipList:
		return true
	default:
		return false
	}
}

// ValidateFunc inspects a value and returns an error message, or an empty
// string when the value is acceptable. Implementations must be pure.
type ValidateFunc func(value any) string

// Option is a single selectable entry of a select control.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// CropSize is the target size images are cropped to before upload.
type CropSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// FileOptions configures file-typed descriptors. MaxSize is expressed in
// bytes.
type FileOptions struct {
	Accept  string    `json:"accept"`
	MaxSize int64     `json:"maxSize"`
	Preview bool      `json:"preview,omitempty"`
	Avatar  bool      `json:"avatar,omitempty"`
	Crop    *CropSize `json:"crop,omitempty"`
}

// TextAreaOptions carries multiline hints for text descriptors. Zero values
// mean "renderer default".
type TextAreaOptions struct {
	Lines    int `json:"lines,omitempty" yaml:"lines"`
	MaxLines int `json:"maxLines,omitempty" yaml:"maxLines"`
}

// Field describes one form control. Property is the unique key inside a
// descriptor set and never changes after creation; Order records insertion
// position and is informational only.
//
// Select descriptors declare exactly one option source: a non-nil static
// Options list or a RemoteSource identifier resolved lazily. Once a remote
// source resolves, the orchestrator's copy of the descriptor has Options
// populated as well; the invariant applies to declarations.
type Field struct {
	Property     string            `json:"property"`
	Order        int               `json:"order"`
	Type         FieldType         `json:"type"`
	Label        string            `json:"label,omitempty"`
	Placeholder  string            `json:"placeholder,omitempty"`
	Tooltip      string            `json:"tooltip,omitempty"`
	Required     bool              `json:"required"`
	Disabled     bool              `json:"disabled,omitempty"`
	Default      any               `json:"default,omitempty"`
	HasDefault   bool              `json:"-"`
	Validate     ValidateFunc      `json:"-"`
	Options      []Option          `json:"options,omitempty"`
	RemoteSource string            `json:"remoteSource,omitempty"`
	AllowNull    bool              `json:"allowNull,omitempty"`
	NullLabel    string            `json:"nullLabel,omitempty"`
	Widget       string            `json:"widget,omitempty"`
	VisibleWhen  string            `json:"visibleWhen,omitempty"`
	File         *FileOptions      `json:"file,omitempty"`
	TextArea     *TextAreaOptions  `json:"textArea,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// DisplayLabel returns Label, falling back to Property.
func (f Field) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Property
}

// Clone returns a deep copy of the descriptor. The Validate function is
// shared since validators are pure.
func (f Field) Clone() Field {
	out := f
	if f.Options != nil {
		out.Options = append([]Option{}, f.Options...)
	}
	if f.File != nil {
		file := *f.File
		if f.File.Crop != nil {
			crop := *f.File.Crop
			file.Crop = &crop
		}
		out.File = &file
	}
	if f.TextArea != nil {
		ta := *f.TextArea
		out.TextArea = &ta
	}
	if f.Metadata != nil {
		out.Metadata = make(map[string]string, len(f.Metadata))
		for k, v := range f.Metadata {
			out.Metadata[k] = v
		}
	}
	out.Default = CloneValue(f.Default)
	return out
}

// CloneFields deep copies a descriptor slice preserving order.
func CloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, field := range fields {
		out[i] = field.Clone()
	}
	return out
}

// HasFileField reports whether any descriptor is file typed.
func HasFileField(fields []Field) bool {
	for _, field := range fields {
		if field.Type == FieldTypeFile {
			return true
		}
	}
	return false
}

// FieldError is a single validation failure bound to a property.
type FieldError struct {
	Property string `json:"property"`
	Message  string `json:"message"`
}

// MessageRequired is emitted for required descriptors without a value.
const MessageRequired = "required"
