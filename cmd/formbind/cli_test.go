package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formbind/pkg/renderers/tui"
	"github.com/goliatone/go-formbind/pkg/testsupport"
)

const usersForm = `
resource: users
params:
  tenant: acme
fields:
  - property: name
    required: true
  - property: role
    type: select
    source: roles
dictionaries:
  roles:
    - {value: a, label: Admin}
    - {value: e, label: Editor}
`

const notesAPI = `
openapi: 3.0.3
info: {title: Notes, version: "1"}
paths: {}
components:
  schemas:
    Note:
      type: object
      required: [title]
      properties:
        title: {type: string}
        body: {type: string, maxLength: 2000}
`

// setup writes a forms directory and a config file pointing at it.
func setup(t *testing.T) (configPath string) {
	t.Helper()
	dir := t.TempDir()
	forms := filepath.Join(dir, "forms")
	require.NoError(t, os.MkdirAll(forms, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(forms, "users.yaml"), []byte(usersForm), 0o644))

	configPath = filepath.Join(dir, "formbind.yaml")
	config := "forms:\n  dir: " + forms + "\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	return configPath
}

func run(t *testing.T, a *app, args ...string) error {
	t.Helper()
	root := newRootCmd(a)
	root.SetArgs(args)
	return root.Execute()
}

func newTestApp() (*app, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return newApp(&out, &errOut), &out
}

func TestDescribe(t *testing.T) {
	config := setup(t)

	a, out := newTestApp()
	require.NoError(t, run(t, a, "--config", config, "describe"))
	assert.Equal(t, "users\n", out.String())

	a, out = newTestApp()
	require.NoError(t, run(t, a, "--config", config, "describe", "users"))
	var fields []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0]["property"])
	assert.Equal(t, true, fields[0]["required"])
	assert.Equal(t, "roles", fields[1]["remoteSource"])

	testsupport.AssertJSONGolden(t, filepath.Join("testdata", "users.describe.json"), out.Bytes())
}

func TestDescribe_UnknownForm(t *testing.T) {
	config := setup(t)
	a, _ := newTestApp()
	err := run(t, a, "--config", config, "describe", "orders")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: users")
}

func TestFill_CreatesEntity(t *testing.T) {
	config := setup(t)
	a, out := newTestApp()
	a.driver = &testsupport.ScriptedDriver{Inputs: []string{"Ada"}, Selects: []int{1}, Confirms: []bool{true}}

	require.NoError(t, run(t, a, "--config", config, "fill", "users", "--mode", "create"))

	var entity map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &entity))
	assert.Equal(t, "Ada", entity["name"])
	assert.Equal(t, "e", entity["role"])
	assert.NotEmpty(t, entity["id"])
}

func TestFill_DeclinedSave(t *testing.T) {
	config := setup(t)
	a, _ := newTestApp()
	a.driver = &testsupport.ScriptedDriver{Inputs: []string{"Ada"}, Selects: []int{0}, Confirms: []bool{false}}

	err := run(t, a, "--config", config, "fill", "users")
	assert.ErrorIs(t, err, tui.ErrAborted)
}

func TestFill_BadMode(t *testing.T) {
	config := setup(t)
	a, _ := newTestApp()
	err := run(t, a, "--config", config, "fill", "users", "--mode", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestFill_AgainstAPI(t *testing.T) {
	var created map[string]any
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/roles":
			_, _ = w.Write([]byte(`{"data":[{"value":"a","label":"Admin"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/users":
			assert.Equal(t, "acme", r.URL.Query().Get("tenant"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			created["id"] = "42"
			_ = json.NewEncoder(w).Encode(created)
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	config := setup(t)
	a, out := newTestApp()
	a.driver = &testsupport.ScriptedDriver{Inputs: []string{"Grace"}, Selects: []int{0}, Confirms: []bool{true}}

	require.NoError(t, run(t, a, "--config", config, "--base-url", api.URL+"/", "fill", "users", "--format", "pretty"))
	assert.Equal(t, "Grace", created["name"])
	assert.Contains(t, out.String(), "id=42")
}

func TestSnapshot(t *testing.T) {
	config := setup(t)
	a, out := newTestApp()
	require.NoError(t, run(t, a, "--config", config, "snapshot", "users", "--action", "/save"))

	html := out.String()
	assert.Contains(t, html, `<form class="formbind"`)
	assert.Contains(t, html, `action="/save"`)
	assert.Contains(t, html, "Editor")

	path := filepath.Join(t.TempDir(), "users.html")
	a, out = newTestApp()
	require.NoError(t, run(t, a, "--config", config, "snapshot", "users", "-o", path))
	assert.Empty(t, out.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `data-resource="users"`)
}

func TestOpenAPI(t *testing.T) {
	config := setup(t)
	spec := filepath.Join(t.TempDir(), "notes.yaml")
	require.NoError(t, os.WriteFile(spec, []byte(notesAPI), 0o644))

	a, out := newTestApp()
	require.NoError(t, run(t, a, "--config", config, "openapi", spec))
	assert.Equal(t, "schema\tNote\n", out.String())

	a, out = newTestApp()
	require.NoError(t, run(t, a, "--config", config, "openapi", spec, "Note"))
	var fields []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &fields))
	require.Len(t, fields, 2)
	assert.Equal(t, "title", fields[0]["property"])
	assert.NotNil(t, fields[1]["textArea"])
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	a, _ := newTestApp()
	err := run(t, a, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "describe")
	assert.Error(t, err)
}

func TestServe(t *testing.T) {
	config := setup(t)
	a, _ := newTestApp()
	a.configFile = config
	require.NoError(t, a.configure())

	handler, err := a.serveHandler()
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	defer srv.Close()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	res, err := client.Get(srv.URL + "/api/dictionaries/roles?q=ed")
	require.NoError(t, err)
	var dict struct {
		Data []map[string]string `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&dict))
	res.Body.Close()
	assert.Equal(t, []map[string]string{{"value": "e", "label": "Editor"}}, dict.Data)

	res, err = client.PostForm(srv.URL+"/forms/users", url.Values{"name": {""}, "role": {"a"}})
	require.NoError(t, err)
	body := readAll(t, res)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "formbind-error")

	res, err = client.PostForm(srv.URL+"/forms/users", url.Values{"name": {"Ada"}, "role": {"a"}})
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	location := res.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, "/forms/users?id="), location)

	res, err = client.Get(srv.URL + location)
	require.NoError(t, err)
	body = readAll(t, res)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `value="Ada"`)

	res, err = client.Get(srv.URL + "/forms/orders")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = client.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body = readAll(t, res)
	assert.Contains(t, body, `formbind_mutation_total{op="create",resource="users",result="ok"} 1`)
}

func readAll(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(res.Body)
	require.NoError(t, err)
	return buf.String()
}
