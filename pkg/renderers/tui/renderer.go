// Package tui presents a form view as a sequence of terminal prompts. Every
// answer is pushed back through the view callbacks, so the orchestrator keeps
// ownership of state and validation marks.
package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/render"
)

// Renderer implements render.Renderer for terminal-driven sessions.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	readFile     FileReader
	confirmSave  bool
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output,
// confirmation before save).
func New(options ...Option) *Renderer {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		readFile:     defaultFileReader,
		confirmSave:  true,
	}

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render walks the descriptors in order, prompting for each editable field
// and forwarding answers through callbacks. When a save callback is present
// the entity returned by it is serialized; otherwise the collected values
// are. Read-only views are printed, never prompted.
func (r *Renderer) Render(ctx context.Context, view render.View, callbacks render.Callbacks) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if view.LoadError != "" {
		_ = r.driver.Info(ctx, r.errorLine(view.LoadError))
		return nil, fmt.Errorf("%w: %s", ErrLoadFailed, view.LoadError)
	}
	if view.Loading {
		return nil, errors.New("tui: form is still loading")
	}

	for _, msg := range view.FormErrors {
		_ = r.driver.Info(ctx, r.errorLine(msg))
	}

	if view.ReadOnly {
		entity := viewEntity(view)
		for _, field := range view.Fields {
			if !callbacks.IsVisible(view, field.Property) {
				continue
			}
			_ = r.driver.Info(ctx, r.infoLine(fmt.Sprintf("%s: %s", field.DisplayLabel(), display(view, field))))
		}
		return r.serialize(entity)
	}

	collected := model.State{
		Values: make(map[string]any, len(view.Values)),
		Files:  make(map[string]model.FileValue, len(view.Files)),
	}
	for k, v := range view.Values {
		collected.Values[k] = v
	}
	for k, v := range view.Files {
		collected.Files[k] = v
	}

	for _, field := range view.Fields {
		// Visibility follows answers given earlier in the walk.
		if !callbacks.IsVisible(view, field.Property) {
			continue
		}
		if field.Disabled {
			_ = r.driver.Info(ctx, r.infoLine(fmt.Sprintf("%s: %s (locked)", field.DisplayLabel(), display(view, field))))
			continue
		}
		if msg, ok := view.Errors[field.Property]; ok {
			_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("%s: %s", field.DisplayLabel(), msg)))
		}
		if err := r.promptField(ctx, view, field, callbacks, &collected); err != nil {
			if errors.Is(err, ErrAborted) {
				callbacks.Cancel()
			}
			return nil, err
		}
	}

	if callbacks.OnSave == nil {
		return r.serialize(filecodec.EncodeState(collected))
	}

	if r.confirmSave {
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Save %s?", strings.TrimSpace(view.Resource)),
			Default: true,
		})
		if err != nil {
			if errors.Is(err, ErrAborted) {
				callbacks.Cancel()
			}
			return nil, err
		}
		if !ok {
			callbacks.Cancel()
			return nil, ErrAborted
		}
	}

	entity, err := callbacks.OnSave(ctx, nil)
	if err != nil {
		_ = r.driver.Info(ctx, r.errorLine(err.Error()))
		return nil, fmt.Errorf("tui: save: %w", err)
	}
	_ = r.driver.Info(ctx, r.infoLine("saved"))
	return r.serialize(entity)
}

func (r *Renderer) infoLine(msg string) string {
	return r.theme.InfoPrefix + msg
}

func (r *Renderer) errorLine(msg string) string {
	return r.theme.ErrorPrefix + msg
}

func (r *Renderer) serialize(entity model.Entity) ([]byte, error) {
	values := map[string]any(entity)
	if values == nil {
		values = map[string]any{}
	}
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(values)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(values)), nil
	default:
		return json.Marshal(values)
	}
}

func viewEntity(view render.View) model.Entity {
	return filecodec.EncodeState(model.State{Values: view.Values, Files: view.Files})
}

func display(view render.View, field model.Field) string {
	value, ok := view.Value(field.Property)
	if !ok || value == nil {
		return "-"
	}
	switch v := value.(type) {
	case model.FileValue:
		return fmt.Sprintf("%s (%d bytes)", v.Name, v.Size())
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case []string:
		return strings.Join(v, ", ")
	}
	text := fmt.Sprint(value)
	for _, opt := range field.Options {
		if opt.Value == text {
			return opt.Label
		}
	}
	return text
}

func flattenForm(values map[string]any) string {
	flattened := url.Values{}
	flatten("", values, flattened)
	return flattened.Encode()
}

func flatten(prefix string, value any, out url.Values) {
	switch v := value.(type) {
	case map[string]any:
		for key, val := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, val, out)
		}
	case []any:
		for _, val := range v {
			out.Add(prefix+"[]", fmt.Sprint(val))
		}
	case []string:
		for _, val := range v {
			out.Add(prefix+"[]", val)
		}
	case nil:
		out.Set(prefix, "")
	default:
		out.Set(prefix, fmt.Sprint(v))
	}
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	case []string:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%v\n", prefix, v)
		}
	}
}
