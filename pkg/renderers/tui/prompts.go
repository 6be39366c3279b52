package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/render"
)

const dateLayout = "2006-01-02"

// errRetry asks the prompt loop to ask the same field again.
var errRetry = errors.New("tui: retry")

func (r *Renderer) promptField(ctx context.Context, view render.View, field model.Field, callbacks render.Callbacks, collected *model.State) error {
	for {
		err := r.askOnce(ctx, view, field, callbacks, collected)
		if errors.Is(err, errRetry) {
			continue
		}
		return err
	}
}

func (r *Renderer) askOnce(ctx context.Context, view render.View, field model.Field, callbacks render.Callbacks, collected *model.State) error {
	if field.Type == model.FieldTypeFile {
		return r.askFile(ctx, field, callbacks, collected)
	}

	current, _ := view.Value(field.Property)
	value, err := r.ask(ctx, field, current)
	if err != nil {
		return err
	}
	if msg := check(field, value); msg != "" {
		_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), msg)))
		return errRetry
	}
	if err := callbacks.Change(field.Property, value); err != nil {
		return fmt.Errorf("tui: %s: %w", field.Property, err)
	}
	collected.Values[field.Property] = value
	return nil
}

func (r *Renderer) ask(ctx context.Context, field model.Field, current any) (any, error) {
	label := field.DisplayLabel()
	help := field.Tooltip

	switch field.Type {
	case model.FieldTypeBoolean:
		def, _ := current.(bool)
		return r.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: def, Help: help})

	case model.FieldTypeSelect:
		return r.askSelect(ctx, field, current)

	case model.FieldTypePassword:
		return r.driver.Password(ctx, InputConfig{Message: label, Help: help})

	case model.FieldTypeNumber:
		raw, err := r.driver.Input(ctx, InputConfig{
			Message:   label,
			Default:   stringValue(current),
			Help:      help,
			Validator: validNumber,
		})
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		if err := validNumber(raw); err != nil {
			_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s: %v", label, err)))
			return nil, errRetry
		}
		num, _ := strconv.ParseFloat(raw, 64)
		return num, nil

	case model.FieldTypeDate:
		raw, err := r.driver.Input(ctx, InputConfig{
			Message:   label,
			Default:   stringValue(current),
			Help:      joinHelp(help, "format YYYY-MM-DD"),
			Validator: validDate,
		})
		if err != nil {
			return nil, err
		}
		raw = strings.TrimSpace(raw)
		if err := validDate(raw); err != nil {
			_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s: %v", label, err)))
			return nil, errRetry
		}
		return raw, nil

	case model.FieldTypeChipList:
		raw, err := r.driver.Input(ctx, InputConfig{
			Message: label,
			Default: strings.Join(stringSlice(current), ", "),
			Help:    joinHelp(help, "comma separated"),
		})
		if err != nil {
			return nil, err
		}
		return splitChips(raw), nil
	}

	if field.TextArea != nil {
		return r.driver.TextArea(ctx, TextAreaConfig{Message: label, Default: stringValue(current), Help: help})
	}
	return r.driver.Input(ctx, InputConfig{Message: label, Default: stringValue(current), Help: help})
}

func (r *Renderer) askSelect(ctx context.Context, field model.Field, current any) (any, error) {
	labels := make([]string, 0, len(field.Options)+1)
	values := make([]any, 0, len(field.Options)+1)
	if field.AllowNull {
		nullLabel := field.NullLabel
		if nullLabel == "" {
			nullLabel = "None"
		}
		labels = append(labels, nullLabel)
		values = append(values, nil)
	}
	for _, opt := range field.Options {
		labels = append(labels, opt.Label)
		values = append(values, opt.Value)
	}
	if len(labels) == 0 {
		_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("%s: no options available", field.DisplayLabel())))
		return current, nil
	}

	def := 0
	if current != nil {
		for i, v := range values {
			if v != nil && v == stringValue(current) {
				def = i
				break
			}
		}
	}

	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      field.DisplayLabel(),
		Options:      labels,
		DefaultIndex: def,
		Help:         field.Tooltip,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(values) {
		_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s selection", field.DisplayLabel())))
		return nil, errRetry
	}
	return values[idx], nil
}

func (r *Renderer) askFile(ctx context.Context, field model.Field, callbacks render.Callbacks, collected *model.State) error {
	help := field.Tooltip
	if field.File != nil && field.File.Accept != "" {
		help = joinHelp(help, "accepts "+field.File.Accept)
	}
	path, err := r.driver.Input(ctx, InputConfig{
		Message: field.DisplayLabel() + " (path)",
		Help:    joinHelp(help, "leave empty to keep the current file"),
	})
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		if _, ok := collected.Files[field.Property]; !ok && field.Required {
			_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), model.MessageRequired)))
			return errRetry
		}
		return nil
	}

	data, err := r.readFile(path)
	if err != nil {
		_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("%s: %v", field.DisplayLabel(), err)))
		return errRetry
	}
	name := filepath.Base(path)
	file := model.FileValue{
		Name:      name,
		MediaType: filecodec.InferMediaType(name, data),
		Data:      data,
	}
	if msg := checkFile(field, file); msg != "" {
		_ = r.driver.Info(ctx, r.errorLine(fmt.Sprintf("Invalid %s: %s", field.DisplayLabel(), msg)))
		return errRetry
	}

	if callbacks.OnFile != nil {
		if err := callbacks.OnFile(field.Property, file); err != nil {
			return fmt.Errorf("tui: %s: %w", field.Property, err)
		}
	} else if err := callbacks.Change(field.Property, file); err != nil {
		return fmt.Errorf("tui: %s: %w", field.Property, err)
	}
	collected.Files[field.Property] = file
	delete(collected.Values, field.Property)
	return nil
}

// check mirrors the orchestrator rules so a bad answer is re-asked on the
// spot instead of surfacing only at save time.
func check(field model.Field, value any) string {
	if field.Required {
		if model.IsEmpty(value) {
			return model.MessageRequired
		}
		if chips, ok := value.([]string); ok && len(chips) == 0 {
			return model.MessageRequired
		}
	}
	if field.Validate != nil {
		return field.Validate(value)
	}
	return ""
}

func checkFile(field model.Field, file model.FileValue) string {
	if field.File == nil {
		return ""
	}
	if field.File.MaxSize > 0 && file.Size() > field.File.MaxSize {
		return fmt.Sprintf("file exceeds %d bytes", field.File.MaxSize)
	}
	if field.File.Accept != "" && !accepts(field.File.Accept, file) {
		return "file type not accepted"
	}
	if field.Validate != nil {
		return field.Validate(file)
	}
	return ""
}

// accepts matches a file against an HTML accept list such as
// "image/*,.pdf".
func accepts(accept string, file model.FileValue) bool {
	ext := strings.ToLower(filepath.Ext(file.Name))
	mediaType := strings.ToLower(file.MediaType)
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	for _, entry := range strings.Split(accept, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
			continue
		case strings.HasPrefix(entry, "."):
			if entry == ext {
				return true
			}
		case strings.HasSuffix(entry, "/*"):
			if strings.HasPrefix(mediaType, strings.TrimSuffix(entry, "*")) {
				return true
			}
		case entry == mediaType:
			return true
		}
	}
	return false
}

func validNumber(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("%q is not a number", raw)
	}
	return nil
}

func validDate(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return fmt.Errorf("%q is not a date (YYYY-MM-DD)", raw)
	}
	return nil
}

func splitChips(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if chip := strings.TrimSpace(part); chip != "" {
			out = append(out, chip)
		}
	}
	return out
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return nil
	}
}

func joinHelp(parts ...string) string {
	var out []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, "; ")
}
