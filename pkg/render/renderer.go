// Package render defines the contract between a form orchestrator and the
// renderers that present it. Renderers receive a View snapshot plus a set of
// Callbacks and never reach into orchestrator state directly.
package render

import (
	"context"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
)

// Renderer presents a form view (terminal prompts, HTML, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view View, callbacks Callbacks) ([]byte, error)
}

// View is a read-only snapshot of a form. Values and Files are deep copies.
// FormErrors holds server messages that match no field. Hidden lists fields
// whose visibility rule is currently false.
type View struct {
	Resource   string
	Mode       string
	Status     string
	ID         string
	Fields     []model.Field
	Values     map[string]any
	Files      map[string]model.FileValue
	Errors     map[string]string
	FormErrors []string
	Loading    bool
	Saving     bool
	ReadOnly   bool
	LoadError  string
	Hidden     map[string]bool
}

// Value returns the current value of property, files included.
func (v View) Value(property string) (any, bool) {
	if file, ok := v.Files[property]; ok {
		return file, true
	}
	value, ok := v.Values[property]
	return value, ok
}

// Callbacks is the only channel a renderer has back into the form. Nil
// members mean the action is unavailable.
type Callbacks struct {
	OnChange func(property string, value any) error
	OnFile   func(property string, file model.FileValue) error
	OnSave   func(ctx context.Context, overrides dataaccess.Params) (model.Entity, error)
	OnDelete func(ctx context.Context, overrides dataaccess.Params) error
	OnCancel func()
	// Visible reports the live visibility of a field, reflecting changes
	// made through OnChange since the view was taken.
	Visible func(property string) bool
}

// Change invokes OnChange when present.
func (c Callbacks) Change(property string, value any) error {
	if c.OnChange == nil {
		return nil
	}
	return c.OnChange(property, value)
}

// IsVisible consults Visible when present, falling back to view.Hidden.
func (c Callbacks) IsVisible(view View, property string) bool {
	if c.Visible != nil {
		return c.Visible(property)
	}
	return !view.Hidden[property]
}

// Cancel invokes OnCancel when present.
func (c Callbacks) Cancel() {
	if c.OnCancel != nil {
		c.OnCancel()
	}
}
