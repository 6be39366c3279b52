// Package widgets picks a client widget hint for each descriptor. Renderers
// surface the hint (the HTML renderer as data-widget) so front-end scripts can
// enhance plain controls.
package widgets

import (
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Built-in widget identifiers.
const (
	WidgetToggle       = "toggle"
	WidgetSelect       = "select"
	WidgetAutocomplete = "autocomplete"
	WidgetChips        = "chips"
	WidgetCodeEditor   = "code-editor"
	WidgetDatePicker   = "date-picker"
	WidgetImage        = "image"
)

// Matcher reports whether a widget applies to field.
type Matcher func(field model.Field) bool

type rule struct {
	name     string
	priority int
	match    Matcher
	order    int
}

// Registry resolves widgets by priority; ties fall back to registration order.
type Registry struct {
	mu    sync.RWMutex
	rules []rule
}

// NewRegistry returns a registry with the built-in matchers.
func NewRegistry() *Registry {
	reg := &Registry{}
	reg.registerBuiltins()
	return reg
}

// Register adds a matcher. Blank names and nil matchers are ignored.
func (r *Registry) Register(name string, priority int, matcher Matcher) {
	if r == nil || matcher == nil {
		return
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{
		name:     trimmed,
		priority: priority,
		match:    matcher,
		order:    len(r.rules),
	})
}

// Resolve returns the widget for field. An explicit Widget or
// Metadata["widget"] wins over the matchers.
func (r *Registry) Resolve(field model.Field) (string, bool) {
	if explicit := explicitWidget(field); explicit != "" {
		return explicit, true
	}
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	rules := append([]rule(nil), r.rules...)
	r.mu.RUnlock()
	if len(rules) == 0 {
		return "", false
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].priority == rules[j].priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].priority > rules[j].priority
	})
	for _, entry := range rules {
		if entry.match(field) {
			return entry.name, true
		}
	}
	return "", false
}

// Decorate returns a copy of fields with Widget filled where it was empty.
// The input slice is not modified.
func (r *Registry) Decorate(fields []model.Field) []model.Field {
	out := make([]model.Field, len(fields))
	for i, field := range fields {
		if field.Widget == "" {
			if widget, ok := r.Resolve(field); ok {
				field.Widget = widget
			}
		}
		out[i] = field
	}
	return out
}

func explicitWidget(field model.Field) string {
	if widget := strings.TrimSpace(field.Widget); widget != "" {
		return widget
	}
	return strings.TrimSpace(field.Metadata["widget"])
}

func (r *Registry) registerBuiltins() {
	r.Register(WidgetToggle, 90, func(field model.Field) bool {
		return field.Type == model.FieldTypeBoolean
	})
	r.Register(WidgetChips, 80, func(field model.Field) bool {
		return field.Type == model.FieldTypeChipList
	})
	// Remote sources can be large; a plain select is kept for inline options.
	r.Register(WidgetAutocomplete, 75, func(field model.Field) bool {
		return field.Type == model.FieldTypeSelect && field.RemoteSource != ""
	})
	r.Register(WidgetSelect, 70, func(field model.Field) bool {
		return field.Type == model.FieldTypeSelect
	})
	r.Register(WidgetImage, 65, func(field model.Field) bool {
		return field.Type == model.FieldTypeFile && field.File != nil && (field.File.Preview || field.File.Avatar)
	})
	r.Register(WidgetCodeEditor, 60, func(field model.Field) bool {
		if field.Type != model.FieldTypeText {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(field.Metadata["format"])) {
		case "json", "yaml", "toml":
			return true
		}
		return false
	})
	r.Register(WidgetDatePicker, 50, func(field model.Field) bool {
		return field.Type == model.FieldTypeDate
	})
}
