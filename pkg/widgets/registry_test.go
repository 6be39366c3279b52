package widgets

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/model"
)

func TestResolve_ExplicitWidgetWins(t *testing.T) {
	reg := NewRegistry()
	field := model.Field{
		Type:     model.FieldTypeBoolean,
		Metadata: map[string]string{"widget": "switch"},
	}
	if got, ok := reg.Resolve(field); !ok || got != "switch" {
		t.Fatalf("expected metadata widget to win, got %q (ok=%v)", got, ok)
	}
	field.Widget = "color-picker"
	if got, _ := reg.Resolve(field); got != "color-picker" {
		t.Fatalf("expected Widget to win over metadata, got %q", got)
	}
}

func TestResolve_Builtins(t *testing.T) {
	reg := NewRegistry()
	cases := []struct {
		name   string
		field  model.Field
		expect string
	}{
		{"boolean toggle", model.Field{Type: model.FieldTypeBoolean}, WidgetToggle},
		{"chip list", model.Field{Type: model.FieldTypeChipList}, WidgetChips},
		{"inline select", model.Field{Type: model.FieldTypeSelect, Options: []model.Option{{Value: "a"}}}, WidgetSelect},
		{"remote select", model.Field{Type: model.FieldTypeSelect, RemoteSource: "roles"}, WidgetAutocomplete},
		{"avatar", model.Field{Type: model.FieldTypeFile, File: &model.FileOptions{Avatar: true}}, WidgetImage},
		{"json text", model.Field{Type: model.FieldTypeText, Metadata: map[string]string{"format": " JSON "}}, WidgetCodeEditor},
		{"date", model.Field{Type: model.FieldTypeDate}, WidgetDatePicker},
	}
	for _, tc := range cases {
		got, ok := reg.Resolve(tc.field)
		if !ok || got != tc.expect {
			t.Fatalf("%s: expected %q, got %q (ok=%v)", tc.name, tc.expect, got, ok)
		}
	}

	if got, ok := reg.Resolve(model.Field{Type: model.FieldTypeText}); ok {
		t.Fatalf("plain text should not resolve, got %q", got)
	}
	if got, ok := reg.Resolve(model.Field{Type: model.FieldTypeFile, File: &model.FileOptions{}}); ok {
		t.Fatalf("plain file should not resolve, got %q", got)
	}
}

func TestRegister_PriorityAndOrder(t *testing.T) {
	reg := &Registry{}
	always := func(model.Field) bool { return true }
	reg.Register("first", 10, always)
	reg.Register("second", 10, always)
	if got, _ := reg.Resolve(model.Field{}); got != "first" {
		t.Fatalf("ties should keep registration order, got %q", got)
	}
	reg.Register("urgent", 20, always)
	if got, _ := reg.Resolve(model.Field{}); got != "urgent" {
		t.Fatalf("higher priority should win, got %q", got)
	}
	reg.Register(" ", 30, always)
	reg.Register("nil", 30, nil)
	if got, _ := reg.Resolve(model.Field{}); got != "urgent" {
		t.Fatalf("blank or nil registrations must be ignored, got %q", got)
	}

	var empty *Registry
	if _, ok := empty.Resolve(model.Field{Type: model.FieldTypeBoolean}); ok {
		t.Fatalf("nil registry should not resolve")
	}
}

func TestDecorate_FillsMissingWidgets(t *testing.T) {
	reg := NewRegistry()
	fields := []model.Field{
		{Property: "active", Type: model.FieldTypeBoolean},
		{Property: "color", Type: model.FieldTypeCustom, Widget: "color-picker"},
		{Property: "name", Type: model.FieldTypeText},
	}
	got := reg.Decorate(fields)

	var widgets []string
	for _, f := range got {
		widgets = append(widgets, f.Widget)
	}
	if diff := cmp.Diff([]string{WidgetToggle, "color-picker", ""}, widgets); diff != "" {
		t.Fatalf("widgets mismatch (-want +got):\n%s", diff)
	}
	if fields[0].Widget != "" {
		t.Fatalf("Decorate must not modify its input")
	}
}
