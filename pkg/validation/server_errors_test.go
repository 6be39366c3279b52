package validation_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
)

func TestMapServerErrors(t *testing.T) {
	fields := []model.Field{
		{Property: "name"},
		{Property: "email"},
		{Property: "tags", Type: model.FieldTypeChipList},
	}

	payload := map[string][]string{
		"/body/name":       {"Name is required", " Name is required "},
		"data.email":       {"Email invalid"},
		"$.entity.tags[0]": {"Tags must be unique"},
		"non_field_errors": {"Form level error"},
		"request/unknown":  {"Falls back to form"},
		"":                 {"Unscoped"},
		"email":            {"  "},
	}

	mapped := validation.MapServerErrors(fields, payload)

	wantFields := map[string][]string{
		"name":  {"Name is required"},
		"email": {"Email invalid"},
		"tags":  {"Tags must be unique"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	wantForm := []string{"Falls back to form", "Form level error", "Unscoped"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}

	ordered := mapped.FieldErrors(fields)
	wantOrdered := []model.FieldError{
		{Property: "name", Message: "Name is required"},
		{Property: "email", Message: "Email invalid"},
		{Property: "tags", Message: "Tags must be unique"},
	}
	if diff := cmp.Diff(wantOrdered, ordered); diff != "" {
		t.Fatalf("ordered errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMapServerErrors_Empty(t *testing.T) {
	mapped := validation.MapServerErrors(nil, nil)
	if mapped.Fields != nil || mapped.Form != nil {
		t.Fatalf("expected empty mapping, got %+v", mapped)
	}
}
