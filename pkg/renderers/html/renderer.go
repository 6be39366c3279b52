// Package html renders a form view to server-side HTML markup using pongo2
// templates. The default template ships embedded; callers can supply their
// own template set through WithTemplatesFS.
package html

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// DefaultTemplate names the embedded form template.
const DefaultTemplate = "form.tpl"

// TemplatesFS exposes the embedded template bundle so callers can extend it.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

// Option configures the renderer.
type Option func(*Renderer)

// WithTemplatesFS loads templates from files instead of the embedded set.
func WithTemplatesFS(files fs.FS) Option {
	return func(r *Renderer) {
		if files != nil {
			r.files = files
		}
	}
}

// WithTemplateName selects the entry template inside the template set.
func WithTemplateName(name string) Option {
	return func(r *Renderer) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			r.templateName = trimmed
		}
	}
}

// WithAction sets the form action attribute.
func WithAction(action string) Option {
	return func(r *Renderer) {
		r.action = strings.TrimSpace(action)
	}
}

// WithHiddenFields emits hidden inputs such as CSRF tokens ahead of the
// visible controls. Later fields win on name collisions.
func WithHiddenFields(fields ...HiddenField) Option {
	return func(r *Renderer) {
		r.hidden = MergeHiddenFields(r.hidden, fields...)
	}
}

// WithWidgets resolves data-widget hints through registry for fields that do
// not name a widget themselves.
func WithWidgets(registry *widgets.Registry) Option {
	return func(r *Renderer) {
		r.widgets = registry
	}
}

// Renderer implements render.Renderer producing HTML.
type Renderer struct {
	files        fs.FS
	templateName string
	action       string
	hidden       map[string]string
	widgets      *widgets.Registry
	template     *pongo2.Template
}

var _ render.Renderer = (*Renderer)(nil)

// New parses the configured template up front so Render never fails on
// template syntax.
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		files:        TemplatesFS(),
		templateName: DefaultTemplate,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	set := pongo2.NewSet("formbind", pongo2.NewFSLoader(r.files))
	tmpl, err := set.FromFile(r.templateName)
	if err != nil {
		return nil, fmt.Errorf("html: load template %q: %w", r.templateName, err)
	}
	r.template = tmpl
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "html"
}

// ContentType reports the produced media type.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render executes the template against view. Callbacks only decide which
// action buttons are offered; HTML submissions come back through HTTP.
func (r *Renderer) Render(ctx context.Context, view render.View, callbacks render.Callbacks) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("html: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.template == nil {
		return nil, errors.New("html: renderer not initialised")
	}

	data := pongo2.Context{
		"form":   r.formContext(view, callbacks),
		"fields": r.fieldContexts(view, callbacks),
	}

	var buf bytes.Buffer
	if err := r.template.ExecuteWriter(data, &buf); err != nil {
		return nil, fmt.Errorf("html: execute template %q: %w", r.templateName, err)
	}
	return buf.Bytes(), nil
}

type formContext struct {
	ID         string
	Resource   string
	Mode       string
	Status     string
	Action     string
	Multipart  bool
	Loading    bool
	Saving     bool
	Busy       bool
	ReadOnly   bool
	LoadError  string
	FormErrors []string
	CanSave    bool
	CanDelete  bool
	Hidden     []HiddenField
}

func (r *Renderer) formContext(view render.View, callbacks render.Callbacks) formContext {
	busy := view.Saving || view.Status == "deleting"
	return formContext{
		ID:         "formbind-" + slug(view.Resource),
		Resource:   view.Resource,
		Mode:       view.Mode,
		Status:     view.Status,
		Action:     r.action,
		Multipart:  model.HasFileField(view.Fields),
		Loading:    view.Loading,
		Saving:     view.Saving,
		Busy:       busy,
		ReadOnly:   view.ReadOnly,
		LoadError:  view.LoadError,
		FormErrors: view.FormErrors,
		CanSave:    callbacks.OnSave != nil && !view.ReadOnly,
		CanDelete:  callbacks.OnDelete != nil && view.ID != "",
		Hidden:     SortedHiddenFields(r.hidden),
	}
}

func (r *Renderer) widget(field model.Field) string {
	if r.widgets == nil {
		return field.Widget
	}
	widget, _ := r.widgets.Resolve(field)
	return widget
}

type optionContext struct {
	Value    string
	Label    string
	Selected bool
}

type fieldContext struct {
	ID          string
	Name        string
	Type        string
	Control     string
	InputType   string
	Label       string
	Placeholder string
	Help        string
	Required    bool
	Disabled    bool
	Value       string
	Checked     bool
	Options     []optionContext
	AllowNull   bool
	NullLabel   string
	Widget      string
	Lines       int
	Accept      string
	MaxSize     int64
	Crop        string
	Avatar      bool
	FileName    string
	PreviewURL  string
	Error       string
	Hidden      bool
	VisibleWhen string
}

// fieldContexts keeps hidden fields in the markup so client scripts can
// toggle them; they drop the required attribute while hidden.
func (r *Renderer) fieldContexts(view render.View, callbacks render.Callbacks) []fieldContext {
	out := make([]fieldContext, 0, len(view.Fields))
	for _, field := range view.Fields {
		value, _ := view.Value(field.Property)
		hidden := !callbacks.IsVisible(view, field.Property)
		fc := fieldContext{
			ID:          "formbind-" + slug(view.Resource) + "-" + slug(field.Property),
			Name:        field.Property,
			Type:        string(field.Type),
			Control:     "input",
			InputType:   "text",
			Label:       field.DisplayLabel(),
			Placeholder: field.Placeholder,
			Help:        sanitizeHelp(field.Tooltip),
			Required:    field.Required && !hidden,
			Disabled:    field.Disabled || view.ReadOnly,
			Widget:      r.widget(field),
			Error:       view.Errors[field.Property],
			Hidden:      hidden,
			VisibleWhen: field.VisibleWhen,
		}

		switch field.Type {
		case model.FieldTypeSelect:
			fc.Control = "select"
			fc.AllowNull = field.AllowNull
			fc.NullLabel = field.NullLabel
			selected := formatValue(value)
			for _, opt := range field.Options {
				fc.Options = append(fc.Options, optionContext{
					Value:    opt.Value,
					Label:    opt.Label,
					Selected: value != nil && opt.Value == selected,
				})
			}
		case model.FieldTypeBoolean:
			fc.Control = "checkbox"
			fc.Checked, _ = value.(bool)
		case model.FieldTypeFile:
			fc.Control = "file"
			fillFile(&fc, field, value)
		case model.FieldTypeChipList:
			fc.Control = "chips"
			fc.Value = formatValue(value)
		case model.FieldTypePassword:
			fc.InputType = "password"
		case model.FieldTypeNumber:
			fc.InputType = "number"
			fc.Value = formatValue(value)
		case model.FieldTypeDate:
			fc.InputType = "date"
			fc.Value = formatValue(value)
		default:
			fc.Value = formatValue(value)
			if field.TextArea != nil {
				fc.Control = "textarea"
				fc.Lines = field.TextArea.Lines
				if fc.Lines <= 0 {
					fc.Lines = 3
				}
			}
		}
		out = append(out, fc)
	}
	return out
}

func fillFile(fc *fieldContext, field model.Field, value any) {
	if field.File != nil {
		fc.Accept = field.File.Accept
		fc.MaxSize = field.File.MaxSize
		fc.Avatar = field.File.Avatar
		if crop := field.File.Crop; crop != nil {
			fc.Crop = fmt.Sprintf("%dx%d", crop.Width, crop.Height)
		}
	}
	file, ok := value.(model.FileValue)
	if !ok {
		return
	}
	fc.FileName = file.Name
	if field.File != nil && field.File.Preview && strings.HasPrefix(file.MediaType, "image/") && len(file.Data) > 0 {
		fc.PreviewURL = filecodec.EncodeDataURL(file.MediaType, file.Data)
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case []string:
		return strings.Join(v, ", ")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

func slug(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// sanitizeHelp keeps inline formatting and links in tooltips and strips
// everything else.
func sanitizeHelp(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(helpSanitizer().Sanitize(trimmed))
}

func helpSanitizer() *bluemonday.Policy {
	helpPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements("b", "strong", "i", "em", "code", "br", "span")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		helpPolicy = policy
	})
	return helpPolicy
}
