package declare

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Catalog holds forms keyed by resource name.
type Catalog struct {
	forms map[string]*Form
}

// Parse decodes a single declaration. JSON documents are accepted as well;
// unknown keys are rejected so typos surface early.
func Parse(data []byte, source string) (*Form, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("declare: file %s is empty", source)
	}

	var form Form
	if strings.EqualFold(path.Ext(source), ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&form); err != nil {
			return nil, fmt.Errorf("declare: parse %s: %w", source, err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&form); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("declare: parse %s: %w", source, err)
		}
	}

	form.Resource = strings.TrimSpace(form.Resource)
	if form.Resource == "" {
		form.Resource = strings.TrimSuffix(path.Base(source), path.Ext(source))
	}
	if form.Resource == "" || form.Resource == "." {
		return nil, fmt.Errorf("declare: file %s does not name a resource", source)
	}
	if len(form.Fields) == 0 {
		return nil, fmt.Errorf("declare: form %q (file %s) declares no fields", form.Resource, source)
	}
	form.Source = source
	return &form, nil
}

// LoadFile reads one declaration from fsys.
func LoadFile(fsys fs.FS, name string) (*Form, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("declare: read %s: %w", name, err)
	}
	return Parse(data, name)
}

// LoadFS walks fsys and parses every YAML or JSON declaration. A nil fsys
// yields an empty catalog.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := &Catalog{forms: make(map[string]*Form)}
	if fsys == nil {
		return catalog, nil
	}

	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDeclarationFile(p) {
			return nil
		}

		form, err := LoadFile(fsys, p)
		if err != nil {
			return err
		}
		if existing, ok := catalog.forms[form.Resource]; ok {
			return fmt.Errorf("declare: duplicate form %q (files %s and %s)", form.Resource, existing.Source, p)
		}
		catalog.forms[form.Resource] = form
		return nil
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

// Form returns the declaration for resource.
func (c *Catalog) Form(resource string) (*Form, bool) {
	if c == nil {
		return nil, false
	}
	form, ok := c.forms[strings.TrimSpace(resource)]
	return form, ok
}

// Names lists the declared resources in lexical order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.forms))
	for name := range c.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dictionaries merges the dictionaries of every form. Two forms declaring
// the same source with different options is an error.
func (c *Catalog) Dictionaries() (map[string][]model.Option, error) {
	out := make(map[string][]model.Option)
	owner := make(map[string]string)
	for _, name := range c.Names() {
		form := c.forms[name]
		for source, options := range form.Dictionaries {
			if prev, ok := out[source]; ok {
				if !sameOptions(prev, options) {
					return nil, fmt.Errorf("declare: dictionary %q declared differently by %s and %s", source, owner[source], name)
				}
				continue
			}
			out[source] = append([]model.Option{}, options...)
			owner[source] = name
		}
	}
	return out, nil
}

func sameOptions(a, b []model.Option) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isDeclarationFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
