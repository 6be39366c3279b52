package html

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/render"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

func sampleView() render.View {
	return render.View{
		Resource: "users",
		Mode:     "edit",
		Status:   "ready",
		ID:       "42",
		Fields: []model.Field{
			{Property: "name", Label: "Name", Type: model.FieldTypeText, Required: true, Tooltip: `Full name <script>alert(1)</script><b>only</b>`},
			{Property: "bio", Type: model.FieldTypeText, TextArea: &model.TextAreaOptions{Lines: 5}},
			{Property: "role", Type: model.FieldTypeSelect, AllowNull: true, NullLabel: "No role", Options: []model.Option{
				{Value: "a", Label: "Admin"},
				{Value: "e", Label: "Editor"},
			}},
			{Property: "active", Type: model.FieldTypeBoolean},
			{Property: "avatar", Type: model.FieldTypeFile, File: &model.FileOptions{
				Accept:  "image/*",
				MaxSize: 2048,
				Preview: true,
				Avatar:  true,
				Crop:    &model.CropSize{Width: 64, Height: 64},
			}},
		},
		Values: map[string]any{
			"name":   "<Ada & Co>",
			"bio":    "hello",
			"role":   "e",
			"active": true,
		},
		Files: map[string]model.FileValue{
			"avatar": {Name: "me.png", MediaType: "image/png", Data: []byte{1, 2, 3}},
		},
		Errors: map[string]string{"name": "required"},
	}
}

func TestRender_Markup(t *testing.T) {
	r, err := New(WithAction("/users/42"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	callbacks := render.Callbacks{
		OnSave: func(context.Context, dataaccess.Params) (model.Entity, error) { return nil, nil },
	}
	out, err := r.Render(context.Background(), sampleView(), callbacks)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		`id="formbind-users"`,
		`action="/users/42"`,
		`enctype="multipart/form-data"`,
		`value="&lt;Ada &amp; Co&gt;"`,
		`<textarea id="formbind-users-bio" name="bio" rows="5">hello</textarea>`,
		`<option value="">No role</option>`,
		`<option value="e" selected>Editor</option>`,
		`name="active" value="true" checked`,
		`accept="image/*"`,
		`data-max-size="2048"`,
		`data-crop="64x64"`,
		`src="data:image/png;base64,AQID"`,
		`<p class="formbind-error" role="alert">required</p>`,
		`value="save"`,
		`<b>only</b>`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected markup to contain %q\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("tooltip markup was not sanitized:\n%s", html)
	}
	if strings.Contains(html, `value="delete"`) {
		t.Fatalf("delete button rendered without delete callback")
	}
}

func TestRender_ReadOnlyAndLoading(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	view := sampleView()
	view.ReadOnly = true
	out, err := r.Render(context.Background(), view, render.Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `name="bio" rows="5" disabled`) {
		t.Fatalf("expected disabled controls in read-only view:\n%s", out)
	}
	if strings.Contains(string(out), "formbind-actions") {
		t.Fatalf("read-only view must not offer actions")
	}

	loading := render.View{Resource: "users", Loading: true, Fields: view.Fields}
	out, err = r.Render(context.Background(), loading, render.Callbacks{})
	if err != nil {
		t.Fatalf("render loading: %v", err)
	}
	if !strings.Contains(string(out), "Loading...") || strings.Contains(string(out), "formbind-field") {
		t.Fatalf("expected loading placeholder only:\n%s", out)
	}
}

func TestRender_CustomTemplate(t *testing.T) {
	files := fstest.MapFS{
		"compact.tpl": &fstest.MapFile{Data: []byte(`{{ form.Resource }}:{% for field in fields %}{{ field.Name }}={{ field.Value }};{% endfor %}`)},
	}
	r, err := New(WithTemplatesFS(files), WithTemplateName("compact.tpl"))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	view := render.View{
		Resource: "tags",
		Fields: []model.Field{
			{Property: "labels", Type: model.FieldTypeChipList},
			{Property: "size", Type: model.FieldTypeNumber},
		},
		Values: map[string]any{"labels": []string{"a", "b"}, "size": 1.5},
	}
	out, err := r.Render(context.Background(), view, render.Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got, want := string(out), "tags:labels=a, b;size=1.5;"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNew_MissingTemplate(t *testing.T) {
	if _, err := New(WithTemplatesFS(fstest.MapFS{}), WithTemplateName("nope.tpl")); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestRender_CancelledContext(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, sampleView(), render.Callbacks{}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestRender_HiddenByRule(t *testing.T) {
	r, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	view := render.View{
		Resource: "orders",
		Status:   "ready",
		Fields: []model.Field{
			{Property: "ship", Type: model.FieldTypeBoolean},
			{Property: "address", Type: model.FieldTypeText, Required: true, VisibleWhen: "ship == true"},
		},
		Values: map[string]any{"ship": false},
		Hidden: map[string]bool{"address": true},
	}
	out, err := r.Render(context.Background(), view, render.Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, `<div class="formbind-field formbind-field--text" data-visible-when="ship == true" hidden>`) {
		t.Fatalf("expected hidden wrapper with rule:\n%s", html)
	}
	if strings.Contains(html, ` required`) {
		t.Fatalf("hidden field must not be required:\n%s", html)
	}

	shown := func(string) bool { return true }
	out, err = r.Render(context.Background(), view, render.Callbacks{Visible: shown})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), " hidden>") {
		t.Fatalf("callbacks should override view.Hidden:\n%s", out)
	}
}

func TestRender_WidgetHints(t *testing.T) {
	view := render.View{
		Resource: "users",
		Status:   "ready",
		Fields: []model.Field{
			{Property: "active", Type: model.FieldTypeBoolean},
			{Property: "color", Type: model.FieldTypeCustom, Widget: "color-picker"},
		},
	}

	plain, err := New()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := plain.Render(context.Background(), view, render.Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(string(out), `data-widget="toggle"`) || !strings.Contains(string(out), `data-widget="color-picker"`) {
		t.Fatalf("without a registry only explicit widgets render:\n%s", out)
	}

	withRegistry, err := New(WithWidgets(widgets.NewRegistry()))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err = withRegistry.Render(context.Background(), view, render.Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(string(out), `<div class="formbind-field formbind-field--boolean" data-widget="toggle">`) {
		t.Fatalf("expected resolved toggle widget:\n%s", out)
	}
}
