package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
)

func TestValidate_RequiredFlagsOnlyMissingValues(t *testing.T) {
	fields := []model.Field{{Property: "name", Type: model.FieldTypeText, Required: true}}

	invalid := map[string]model.State{
		"missing":      model.NewState(),
		"nil":          {Values: map[string]any{"name": nil}},
		"empty string": {Values: map[string]any{"name": ""}},
	}
	for name, state := range invalid {
		t.Run(name, func(t *testing.T) {
			result := validation.Validate(fields, state)
			want := []model.FieldError{{Property: "name", Message: model.MessageRequired}}
			if diff := cmp.Diff(want, result.Errors); diff != "" {
				t.Fatalf("errors mismatch (-want +got):\n%s", diff)
			}
			if result.Valid() {
				t.Fatalf("expected invalid result")
			}
		})
	}

	valid := map[string]any{
		"space":  " ",
		"zero":   0,
		"false":  false,
		"text":   "x",
		"list":   []string{},
		"object": map[string]any{},
	}
	for name, value := range valid {
		t.Run(name, func(t *testing.T) {
			state := model.State{Values: map[string]any{"name": value}}
			if result := validation.Validate(fields, state); !result.Valid() {
				t.Fatalf("value %#v must satisfy required, got %+v", value, result.Errors)
			}
		})
	}
}

func TestValidate_OrderAndCustomRules(t *testing.T) {
	fields := []model.Field{
		{Property: "email", Required: true},
		{Property: "password", Validate: validation.MinLength(3)},
		{Property: "nickname", Required: true, Validate: func(any) string { return "never reached" }},
		{Property: "note"},
	}
	state := model.State{Values: map[string]any{"password": "ab", "note": ""}}

	result := validation.Validate(fields, state)
	want := []model.FieldError{
		{Property: "email", Message: model.MessageRequired},
		{Property: "password", Message: "must be at least 3 characters"},
		{Property: "nickname", Message: model.MessageRequired},
	}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_RequiredFile(t *testing.T) {
	fields := []model.Field{{Property: "avatar", Type: model.FieldTypeFile, Required: true, Validate: validation.MaxFileSize(2)}}

	if validation.Validate(fields, model.NewState()).Valid() {
		t.Fatalf("missing file must fail required")
	}

	state := model.NewState().WithFile("avatar", model.FileValue{Name: "a.png", MediaType: "image/png", Data: []byte{1, 2, 3}})
	result := validation.Validate(fields, state)
	if result.Valid() || result.Errors[0].Message != "file exceeds 2 bytes" {
		t.Fatalf("expected size error, got %+v", result.Errors)
	}
}

func TestMarks(t *testing.T) {
	var marks validation.Marks
	marks.Apply(validation.Result{Errors: []model.FieldError{
		{Property: "a", Message: "first"},
		{Property: "a", Message: "second"},
		{Property: "b", Message: "required"},
	}})

	if diff := cmp.Diff(map[string]string{"a": "first", "b": "required"}, marks.Clone()); diff != "" {
		t.Fatalf("marks mismatch (-want +got):\n%s", diff)
	}

	marks.Clear("a")
	if marks.Has("a") || !marks.Has("b") {
		t.Fatalf("clear removed the wrong mark: %v", marks)
	}

	marks.Apply(validation.Result{})
	if marks.Clone() != nil {
		t.Fatalf("valid result must clear marks, got %v", marks)
	}
}
