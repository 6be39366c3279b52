// Package formbind is the top-level entry point. It re-exports the types most
// callers need and wires the builder, orchestrator and renderers together for
// the common cases.
package formbind

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-formbind/pkg/builder"
	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/declare"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/openapi"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/renderers/html"
	"github.com/goliatone/go-formbind/pkg/renderers/tui"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

type (
	Field     = model.Field
	Option    = model.Option
	FileValue = model.FileValue
	State     = model.State
	Entity    = model.Entity

	Orchestrator = orchestrator.Orchestrator
	Target       = orchestrator.Target
	Mode         = orchestrator.Mode
	Snapshot     = orchestrator.Snapshot
	LoadError    = orchestrator.LoadError

	// MutationError is returned by Save and Delete; it is distinct from
	// LoadError so callers can tell fetch failures from write failures.
	MutationError = orchestrator.MutationError

	Params = dataaccess.Params
	Client = dataaccess.Client
)

const (
	ModeAuto   = orchestrator.ModeAuto
	ModeCreate = orchestrator.ModeCreate
	ModeEdit   = orchestrator.ModeEdit
	ModeView   = orchestrator.ModeView
)

// NewBuilder starts a descriptor set.
func NewBuilder(options ...builder.Option) *builder.Builder {
	return builder.New(options...)
}

// NewForm constructs an orchestrator without initialising it.
func NewForm(resource string, fields []model.Field, client dataaccess.Client, options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(resource, fields, client, options...)
}

// Open constructs an orchestrator, initialises it for target and waits until
// the entity and dictionaries have settled. A failed entity fetch does not
// fail Open; it is reported through the orchestrator's LoadErr. The caller
// owns the returned orchestrator and must Close it.
func Open(ctx context.Context, resource string, fields []model.Field, client dataaccess.Client, target orchestrator.Target, options ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	o := orchestrator.New(resource, fields, client, options...)
	if err := o.Initialize(ctx, target); err != nil {
		_ = o.Close()
		return nil, fmt.Errorf("formbind: initialise %s: %w", resource, err)
	}
	if err := o.Wait(ctx); err != nil {
		_ = o.Close()
		return nil, fmt.Errorf("formbind: wait %s: %w", resource, err)
	}
	return o, nil
}

// OpenDeclared opens a form declared in YAML or JSON. The declaration's
// params become the orchestrator's base params; options passed by the caller
// apply afterwards and may override them.
func OpenDeclared(ctx context.Context, form *declare.Form, client dataaccess.Client, target orchestrator.Target, options ...orchestrator.Option) (*orchestrator.Orchestrator, error) {
	if form == nil {
		return nil, fmt.Errorf("formbind: missing form declaration")
	}
	fields, err := form.Build()
	if err != nil {
		return nil, err
	}
	opts := append([]orchestrator.Option{orchestrator.WithBaseParams(form.BaseParams())}, options...)
	return Open(ctx, form.Resource, fields, client, target, opts...)
}

// ImportOpenAPI loads src and derives descriptors for ref, which names a
// component schema or an operation id.
func ImportOpenAPI(ctx context.Context, loader *openapi.Loader, src openapi.Source, ref string) ([]model.Field, error) {
	if loader == nil {
		loader = openapi.NewLoader()
	}
	data, err := loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	doc, err := openapi.Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	return doc.Fields(ref)
}

// DefaultRenderers returns a registry holding the terminal and HTML
// renderers. The HTML renderer resolves widget hints through the built-in
// widget registry unless htmlOptions replace it.
func DefaultRenderers(tuiOptions []tui.Option, htmlOptions ...html.Option) (*render.Registry, error) {
	registry := render.NewRegistry()
	if err := registry.Register(tui.New(tuiOptions...)); err != nil {
		return nil, err
	}
	htmlRenderer, err := html.New(append([]html.Option{html.WithWidgets(widgets.NewRegistry())}, htmlOptions...)...)
	if err != nil {
		return nil, err
	}
	if err := registry.Register(htmlRenderer); err != nil {
		return nil, err
	}
	return registry, nil
}

// EmbeddedTemplates exposes the built-in HTML templates so callers can reuse
// or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return html.TemplatesFS()
}
