package html

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/render"
)

func submissionFields() []model.Field {
	return []model.Field{
		{Property: "name", Type: model.FieldTypeText},
		{Property: "age", Type: model.FieldTypeNumber},
		{Property: "active", Type: model.FieldTypeBoolean},
		{Property: "role", Type: model.FieldTypeSelect},
		{Property: "tags", Type: model.FieldTypeChipList},
		{Property: "born", Type: model.FieldTypeDate},
		{Property: "locked", Type: model.FieldTypeText, Disabled: true},
		{Property: "avatar", Type: model.FieldTypeFile},
	}
}

func TestDecodeSubmission_URLEncoded(t *testing.T) {
	form := url.Values{
		"name":    {"Ada"},
		"age":     {"36"},
		"role":    {""},
		"tags":    {"go, cli"},
		"born":    {"1815-12-10"},
		"locked":  {"hacked"},
		"_csrf":   {"tok"},
		"_action": {"delete"},
	}
	req := httptest.NewRequest(http.MethodPost, "/forms/users", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sub, err := DecodeSubmission(req, submissionFields(), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]any{
		"name":   "Ada",
		"age":    36.0,
		"active": false,
		"role":   nil,
		"tags":   []string{"go", "cli"},
		"born":   "1815-12-10",
	}
	if diff := cmp.Diff(want, sub.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if sub.Action != ActionDelete {
		t.Fatalf("expected delete action, got %q", sub.Action)
	}
	if diff := cmp.Diff(map[string]string{"_csrf": "tok"}, sub.Hidden); diff != "" {
		t.Fatalf("hidden mismatch (-want +got):\n%s", diff)
	}
	if len(sub.Files) != 0 || len(sub.Invalid) != 0 {
		t.Fatalf("unexpected files %v or invalid %v", sub.Files, sub.Invalid)
	}
}

func TestDecodeSubmission_InvalidValues(t *testing.T) {
	form := url.Values{"age": {"old"}, "born": {"yesterday"}, "active": {"on"}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	sub, err := DecodeSubmission(req, submissionFields(), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := sub.Invalid["age"]; !ok {
		t.Fatalf("expected age to be invalid: %v", sub.Invalid)
	}
	if _, ok := sub.Invalid["born"]; !ok {
		t.Fatalf("expected born to be invalid: %v", sub.Invalid)
	}
	if sub.Values["active"] != true {
		t.Fatalf("expected checkbox on to decode as true")
	}
	if _, ok := sub.Values["name"]; ok {
		t.Fatalf("absent text field must be left untouched")
	}
	if sub.Action != ActionSave {
		t.Fatalf("expected default save action, got %q", sub.Action)
	}
}

func TestDecodeSubmission_Multipart(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("name", "Ada")
	part, err := w.CreateFormFile("avatar", "me.png")
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	png := []byte("\x89PNG\r\n\x1a\n0000")
	_, _ = part.Write(png)
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	sub, err := DecodeSubmission(req, submissionFields(), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.Values["name"] != "Ada" {
		t.Fatalf("expected name, got %v", sub.Values["name"])
	}
	want := model.FileValue{Name: "me.png", MediaType: "image/png", Data: png}
	if got := sub.Files["avatar"]; !got.Equal(want) {
		t.Fatalf("unexpected file %+v", got)
	}
}

func TestRender_HiddenFields(t *testing.T) {
	r, err := New(WithHiddenFields(CSRFToken("_csrf", "tok"), Hidden("version", 3)))
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	out, err := r.Render(context.Background(), render.View{Resource: "users"}, render.Callbacks{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	csrf := strings.Index(html, `<input type="hidden" name="_csrf" value="tok">`)
	version := strings.Index(html, `<input type="hidden" name="version" value="3">`)
	if csrf < 0 || version < 0 || csrf > version {
		t.Fatalf("expected sorted hidden inputs:\n%s", html)
	}
}
