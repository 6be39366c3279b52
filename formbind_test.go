package formbind_test

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind"
	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/dataaccess/memory"
	"github.com/goliatone/go-formbind/pkg/declare"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/openapi"
)

func TestOpen_EditLoadsEntity(t *testing.T) {
	store := memory.New()
	store.Seed("users", "1", model.Entity{"id": "1", "name": "Ada"})

	b := formbind.NewBuilder()
	b.FieldFor("name").Required()
	fields, err := b.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	o, err := formbind.Open(context.Background(), "users", fields, store, formbind.Target{ID: "1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	if o.Mode() != formbind.ModeEdit {
		t.Fatalf("expected edit mode, got %s", o.Mode())
	}
	if got, _ := o.Values().Get("name"); got != "Ada" {
		t.Fatalf("expected loaded name, got %v", got)
	}
}

func TestOpenDeclared_AppliesBaseParams(t *testing.T) {
	form, err := declare.Parse([]byte(`
resource: notes
params:
  tenant: acme
fields:
  - property: title
`), "notes.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	store := memory.New(memory.WithIDGenerator(func() string { return "n-1" }))
	o, err := formbind.OpenDeclared(context.Background(), form, store, formbind.Target{Mode: formbind.ModeCreate})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer o.Close()

	if err := o.SetValue("title", "hello"); err != nil {
		t.Fatalf("set value: %v", err)
	}
	if _, err := o.Save(context.Background(), dataaccess.Params{"draft": true}); err != nil {
		t.Fatalf("save: %v", err)
	}

	calls := store.CallsFor(memory.OpCreateEntity)
	if len(calls) != 1 {
		t.Fatalf("expected one create call, got %d", len(calls))
	}
	want := dataaccess.Params{"tenant": "acme", "draft": true}
	if diff := cmp.Diff(want, calls[0].Params); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenDeclared_NilForm(t *testing.T) {
	if _, err := formbind.OpenDeclared(context.Background(), nil, memory.New(), formbind.Target{}); err == nil {
		t.Fatalf("expected error for nil form")
	}
}

func TestImportOpenAPI(t *testing.T) {
	files := fstest.MapFS{
		"api.yaml": &fstest.MapFile{Data: []byte(`
openapi: 3.0.3
info: {title: T, version: "1"}
paths: {}
components:
  schemas:
    Note:
      type: object
      required: [title]
      properties:
        title: {type: string}
        pinned: {type: boolean}
`)},
	}
	loader := openapi.NewLoader(openapi.WithFileSystem(files))
	fields, err := formbind.ImportOpenAPI(context.Background(), loader, openapi.SourceFromFS("api.yaml"), "Note")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	got := make([]string, 0, len(fields))
	for _, f := range fields {
		got = append(got, f.Property+":"+string(f.Type))
	}
	if diff := cmp.Diff([]string{"title:text", "pinned:boolean"}, got); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if !fields[0].Required {
		t.Fatalf("expected title to be required")
	}
}

func TestDefaultRenderers(t *testing.T) {
	registry, err := formbind.DefaultRenderers(nil)
	if err != nil {
		t.Fatalf("renderers: %v", err)
	}
	if diff := cmp.Diff([]string{"html", "tui"}, registry.List()); diff != "" {
		t.Fatalf("renderers mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedTemplates(t *testing.T) {
	if _, err := fs.ReadFile(formbind.EmbeddedTemplates(), "form.tpl"); err != nil {
		t.Fatalf("expected embedded form template: %v", err)
	}
}
