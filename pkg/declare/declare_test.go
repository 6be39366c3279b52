package declare

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/builder"
	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
)

const usersYAML = `
resource: users
params:
  tenant: acme
fields:
  - property: fullName
    required: true
    rules:
      - {kind: minLength, param: "2"}
  - property: role
    type: select
    source: roles
    allowNull: true
    nullLabel: No role
  - property: status
    type: select
    default: draft
    options:
      - {value: draft, label: Draft}
      - {value: live, label: Live}
  - property: avatar
    type: file
    file:
      maxSizeKB: 64
      avatar: true
      crop: {width: 128, height: 128}
  - property: bio
    textarea: {lines: 4}
    tooltip: Short <b>bio</b>
dictionaries:
  roles:
    - {value: a, label: Admin}
    - {value: e, label: Editor}
`

func TestParse_BuildsDescriptors(t *testing.T) {
	form, err := Parse([]byte(usersYAML), "forms/users.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fields, err := form.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var got []string
	for _, field := range fields {
		got = append(got, field.Property+":"+string(field.Type)+":"+field.Label)
	}
	want := []string{
		"fullName:text:Full name",
		"role:select:Role",
		"status:select:Status",
		"avatar:file:Avatar",
		"bio:text:Bio",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("descriptors mismatch (-want +got):\n%s", diff)
	}

	name := fields[0]
	if !name.Required || name.Validate == nil {
		t.Fatalf("expected required name with rule")
	}
	if msg := name.Validate("A"); msg == "" {
		t.Fatalf("expected minLength failure")
	}
	if msg := name.Validate("Ada"); msg != "" {
		t.Fatalf("unexpected rule failure %q", msg)
	}

	role := fields[1]
	if role.RemoteSource != "roles" || !role.AllowNull || role.NullLabel != "No role" || role.Options != nil {
		t.Fatalf("unexpected role descriptor %+v", role)
	}

	status := fields[2]
	if !status.HasDefault || status.Default != "draft" || len(status.Options) != 2 {
		t.Fatalf("unexpected status descriptor %+v", status)
	}

	avatar := fields[3].File
	wantFile := &model.FileOptions{Accept: "*", MaxSize: 64000, Preview: true, Avatar: true, Crop: &model.CropSize{Width: 128, Height: 128}}
	if diff := cmp.Diff(wantFile, avatar); diff != "" {
		t.Fatalf("file options mismatch (-want +got):\n%s", diff)
	}

	if fields[4].TextArea == nil || fields[4].TextArea.Lines != 4 {
		t.Fatalf("expected textarea hints, got %+v", fields[4].TextArea)
	}

	if diff := cmp.Diff(dataaccess.Params{"tenant": "acme"}, form.BaseParams()); diff != "" {
		t.Fatalf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":       "   ",
		"unknown key": "resource: x\nfields:\n  - property: a\n    colour: red\n",
		"no fields":   "resource: x\n",
		"bad json":    `{"resource": "x", "fields": [{"property": "a", "extra": 1}]}`,
	}
	for name, doc := range cases {
		source := "form.yaml"
		if name == "bad json" {
			source = "form.json"
		}
		if _, err := Parse([]byte(doc), source); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestBuild_InvalidDeclarations(t *testing.T) {
	cases := []struct {
		name   string
		fields []Field
		want   error
	}{
		{"both sources", []Field{{Property: "r", Type: model.FieldTypeSelect, Source: "roles", Options: []model.Option{}}}, builder.ErrSelectSource},
		{"options on text", []Field{{Property: "r", Options: []model.Option{{Value: "a"}}}}, builder.ErrOptionsOnNonSelect},
		{"blank property", []Field{{Property: " "}}, builder.ErrEmptyProperty},
	}
	for _, tc := range cases {
		form := &Form{Resource: "x", Fields: tc.fields}
		if _, err := form.Build(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}

	form := &Form{Resource: "x", Fields: []Field{{Property: "a"}, {Property: "a"}}}
	if _, err := form.Build(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	form = &Form{Resource: "x", Fields: []Field{{Property: "a", Rules: []Rule{{Kind: "nope"}}}}}
	if _, err := form.Build(); err == nil {
		t.Fatalf("expected unknown rule error")
	}

	form = &Form{Resource: "x", Fields: []Field{{Property: "a", VisibleWhen: "b =="}}}
	if _, err := form.Build(); err == nil || !strings.Contains(err.Error(), "visibleWhen") {
		t.Fatalf("expected visibleWhen compile error, got %v", err)
	}
}

func TestParse_VisibleWhen(t *testing.T) {
	doc := `
resource: orders
fields:
  - property: ship
    type: boolean
  - property: address
    required: true
    visibleWhen: " ship == true "
`
	form, err := Parse([]byte(doc), "orders.yaml")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fields, err := form.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := fields[1].VisibleWhen; got != "ship == true" {
		t.Fatalf("unexpected rule %q", got)
	}
}

func TestLoadFS_Catalog(t *testing.T) {
	files := fstest.MapFS{
		"users.yaml":       {Data: []byte(usersYAML)},
		"nested/tags.yml":  {Data: []byte("fields:\n  - property: label\n  - property: role\n    type: select\n    source: roles\ndictionaries:\n  roles:\n    - {value: a, label: Admin}\n    - {value: e, label: Editor}\n")},
		"README.md":        {Data: []byte("ignored")},
		"json/orders.json": {Data: []byte(`{"resource":"orders","fields":[{"property":"total","type":"number"}]}`)},
	}
	catalog, err := LoadFS(files)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"orders", "tags", "users"}, catalog.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	tags, ok := catalog.Form("tags")
	if !ok || tags.Source != "nested/tags.yml" {
		t.Fatalf("expected tags form from nested file, got %+v", tags)
	}

	dicts, err := catalog.Dictionaries()
	if err != nil {
		t.Fatalf("dictionaries: %v", err)
	}
	if len(dicts["roles"]) != 2 {
		t.Fatalf("expected merged roles dictionary, got %v", dicts)
	}
}

func TestLoadFS_Conflicts(t *testing.T) {
	dup := fstest.MapFS{
		"a.yaml": {Data: []byte("resource: users\nfields:\n  - property: a\n")},
		"b.yaml": {Data: []byte("resource: users\nfields:\n  - property: b\n")},
	}
	if _, err := LoadFS(dup); err == nil {
		t.Fatalf("expected duplicate form error")
	}

	conflicting := fstest.MapFS{
		"a.yaml": {Data: []byte("fields:\n  - property: a\ndictionaries:\n  roles:\n    - {value: a, label: A}\n")},
		"b.yaml": {Data: []byte("fields:\n  - property: b\ndictionaries:\n  roles:\n    - {value: b, label: B}\n")},
	}
	catalog, err := LoadFS(conflicting)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := catalog.Dictionaries(); err == nil {
		t.Fatalf("expected dictionary conflict")
	}

	empty, err := LoadFS(nil)
	if err != nil || len(empty.Names()) != 0 {
		t.Fatalf("expected empty catalog, got %v %v", empty.Names(), err)
	}
}
