package builder_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formbind/internal/labels"
	"github.com/goliatone/go-formbind/pkg/builder"
	"github.com/goliatone/go-formbind/pkg/model"
)

type userFields struct{ *builder.Builder }

func newUserFields() userFields {
	b := builder.New()
	b.FieldFor("avatar").WithLabel("Avatar").File(builder.FileSpec{WithImagePreview: true})
	b.FieldFor("name").WithLabel("Name").Required()
	b.FieldFor("surname").WithLabel("Surname").Disable()
	b.FieldFor("password").WithLabel("Password").Password().
		WithValidation(func(v any) string {
			if s, _ := v.(string); len(s) < 3 {
				return "too short"
			}
			return ""
		})
	b.FieldFor("blocked").WithLabel("Blocked").Boolean().WithDefaultValue(false)
	b.FieldFor("role").WithLabel("Role").Select([]model.Option{
		{Value: "1", Label: "Admin"},
		{Value: "2", Label: "User"},
	})
	return userFields{b}
}

func TestFieldFor_ReturnsSameDescriptor(t *testing.T) {
	b := builder.New()
	first := b.FieldFor("name")
	second := b.FieldFor("name")

	if first.Descriptor() != second.Descriptor() {
		t.Fatalf("expected the same descriptor instance for repeated FieldFor calls")
	}
	if b.Len() != 1 {
		t.Fatalf("expected one descriptor, got %d", b.Len())
	}
	if got := first.Descriptor().Type; got != model.FieldTypeText {
		t.Fatalf("expected default type text, got %q", got)
	}
}

func TestBuild_PreservesInsertionOrder(t *testing.T) {
	fields, err := newUserFields().Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var got []string
	for i, field := range fields {
		if field.Order != i {
			t.Fatalf("field %q order = %d, want %d", field.Property, field.Order, i)
		}
		got = append(got, field.Property)
	}
	want := []string{"avatar", "name", "surname", "password", "blocked", "role"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_ReturnsCopies(t *testing.T) {
	b := newUserFields()
	fields := b.MustBuild()
	fields[5].Options[0].Label = "mutated"

	again := b.MustBuild()
	if again[5].Options[0].Label != "Admin" {
		t.Fatalf("Build leaked descriptor storage to callers")
	}
}

func TestBuild_DescriptorShapes(t *testing.T) {
	fields := newUserFields().MustBuild()

	want := []model.Field{
		{
			Property: "avatar", Order: 0, Type: model.FieldTypeFile, Label: "Avatar",
			File: &model.FileOptions{Accept: "image/*", MaxSize: 4096 * 1000, Preview: true},
		},
		{Property: "name", Order: 1, Type: model.FieldTypeText, Label: "Name", Required: true},
		{Property: "surname", Order: 2, Type: model.FieldTypeText, Label: "Surname", Disabled: true},
		{Property: "password", Order: 3, Type: model.FieldTypePassword, Label: "Password"},
		{Property: "blocked", Order: 4, Type: model.FieldTypeBoolean, Label: "Blocked", Default: false, HasDefault: true},
		{
			Property: "role", Order: 5, Type: model.FieldTypeSelect, Label: "Role",
			Options: []model.Option{{Value: "1", Label: "Admin"}, {Value: "2", Label: "User"}},
		},
	}
	if diff := cmp.Diff(want, fields, cmpopts.IgnoreFields(model.Field{}, "Validate")); diff != "" {
		t.Fatalf("descriptor mismatch (-want +got):\n%s", diff)
	}
	if fields[3].Validate == nil {
		t.Fatalf("expected validation rule on password")
	}
}

func TestTypeSetting_LastWriteWins(t *testing.T) {
	b := builder.New()
	b.FieldFor("flag").Password().Boolean()
	b.FieldFor("when").Number().Date()

	fields := b.MustBuild()
	if fields[0].Type != model.FieldTypeBoolean {
		t.Fatalf("flag type = %q, want boolean", fields[0].Type)
	}
	if fields[1].Type != model.FieldTypeDate {
		t.Fatalf("when type = %q, want date", fields[1].Type)
	}
}

func TestBuild_SelectSourceInvariant(t *testing.T) {
	cases := []struct {
		name    string
		declare func(*builder.Builder)
		wantErr error
	}{
		{
			name: "static only",
			declare: func(b *builder.Builder) {
				b.FieldFor("role").Select([]model.Option{{Value: "a", Label: "A"}})
			},
		},
		{
			name: "empty static list still declares a source",
			declare: func(b *builder.Builder) {
				b.FieldFor("role").Select([]model.Option{})
			},
		},
		{
			name: "remote only",
			declare: func(b *builder.Builder) {
				b.FieldFor("role").SelectWithRemoteSource("/api/roles")
			},
		},
		{
			name: "both",
			declare: func(b *builder.Builder) {
				b.FieldFor("role").Select([]model.Option{{Value: "a"}}).SelectWithRemoteSource("/api/roles")
			},
			wantErr: builder.ErrSelectSource,
		},
		{
			name: "neither",
			declare: func(b *builder.Builder) {
				b.FieldFor("role").Select(nil)
			},
			wantErr: builder.ErrSelectSource,
		},
		{
			name: "type replaced after select",
			declare: func(b *builder.Builder) {
				b.FieldFor("role").SelectWithRemoteSource("/api/roles").Password()
			},
			wantErr: builder.ErrOptionsOnNonSelect,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := builder.New()
			tc.declare(b)
			_, err := b.Build()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFile_Defaults(t *testing.T) {
	cases := []struct {
		name string
		spec builder.FileSpec
		want model.FileOptions
	}{
		{
			name: "zero spec",
			want: model.FileOptions{Accept: "*", MaxSize: 4096000},
		},
		{
			name: "avatar forces preview and image accept",
			spec: builder.FileSpec{IsAvatar: true, WithImagePreview: true, MaxSizeKB: 10},
			want: model.FileOptions{Accept: "image/*", MaxSize: 10000, Preview: true, Avatar: true},
		},
		{
			name: "avatar without preview flag keeps accept",
			spec: builder.FileSpec{IsAvatar: true, Accept: ".png"},
			want: model.FileOptions{Accept: ".png", MaxSize: 4096000, Preview: true, Avatar: true},
		},
		{
			name: "crop",
			spec: builder.FileSpec{Accept: "application/pdf", CropToSize: &model.CropSize{Width: 64, Height: 32}},
			want: model.FileOptions{Accept: "application/pdf", MaxSize: 4096000, Crop: &model.CropSize{Width: 64, Height: 32}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := builder.New()
			b.FieldFor("doc").File(tc.spec)
			fields := b.MustBuild()
			if diff := cmp.Diff(&tc.want, fields[0].File); diff != "" {
				t.Fatalf("file options mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTextAreaAndChaining(t *testing.T) {
	b := builder.New(builder.WithLabeler(labels.Humanize))
	b.FieldFor("bio").TextArea(&model.TextAreaOptions{Lines: 3, MaxLines: 8}).
		FieldFor("tags").ChipList().
		FieldFor("color").WithCustomControl("color-picker")

	fields := b.MustBuild()
	if diff := cmp.Diff(&model.TextAreaOptions{Lines: 3, MaxLines: 8}, fields[0].TextArea); diff != "" {
		t.Fatalf("textarea mismatch (-want +got):\n%s", diff)
	}
	if fields[0].Type != model.FieldTypeText || fields[0].Label != "Bio" {
		t.Fatalf("unexpected bio descriptor: %+v", fields[0])
	}
	if fields[1].Type != model.FieldTypeChipList {
		t.Fatalf("tags type = %q", fields[1].Type)
	}
	if fields[2].Type != model.FieldTypeCustom || fields[2].Widget != "color-picker" {
		t.Fatalf("unexpected color descriptor: %+v", fields[2])
	}
}

func TestApplyExtensions(t *testing.T) {
	mandatoryEmail := func(f *builder.FieldBuilder) *builder.FieldBuilder {
		return f.Required().WithPlaceholder("name@example.com").WithMetadata("inputType", "email")
	}

	b := builder.New()
	b.FieldFor("email").Apply(mandatoryEmail, nil)

	field := b.MustBuild()[0]
	if !field.Required || field.Placeholder != "name@example.com" || field.Metadata["inputType"] != "email" {
		t.Fatalf("extension not applied: %+v", field)
	}
}

func TestDefaultsAndSelectOptions(t *testing.T) {
	b := builder.New()
	b.FieldFor("count").Number().WithDefaultValue(3)
	b.FieldFor("tags").ChipList().WithDefaultValue([]string{"a"})
	b.FieldFor("role").SelectWithRemoteSource("/roles")
	b.FieldFor("name")

	want := map[string]any{"count": 3, "tags": []string{"a"}}
	if diff := cmp.Diff(want, b.Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}

	if err := b.SetSelectOptions("name", nil); err == nil {
		t.Fatalf("expected error setting options on a text field")
	}
	if err := b.SetSelectOptions("missing", nil); err == nil {
		t.Fatalf("expected error for undeclared field")
	}
}

func TestFieldFor_EmptyProperty(t *testing.T) {
	b := builder.New()
	b.FieldFor("  ").Required()

	if b.Len() != 0 {
		t.Fatalf("blank property must not create a descriptor")
	}
	if _, err := b.Build(); !errors.Is(err, builder.ErrEmptyProperty) {
		t.Fatalf("expected ErrEmptyProperty, got %v", err)
	}
}
