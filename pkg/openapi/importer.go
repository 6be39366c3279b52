package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formbind/internal/labels"
	"github.com/goliatone/go-formbind/pkg/builder"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
	"github.com/goliatone/go-formbind/pkg/visibility/expr"
)

// Vendor extensions understood on property schemas.
const (
	ExtSource      = "x-formbind-source"
	ExtWidget      = "x-formbind-widget"
	ExtTextArea    = "x-formbind-textarea"
	ExtOrder       = "x-formbind-order"
	ExtAccept      = "x-formbind-accept"
	ExtVisibleWhen = "x-formbind-visible-when"
	ExtEnumNames   = "x-enumNames"

	componentSchemaPrefix = "#/components/schemas/"
	longTextThreshold     = 255
)

// ErrSchemaNotFound is returned when a reference matches neither a component
// schema nor an operation with a request body.
var ErrSchemaNotFound = errors.New("openapi: schema not found")

// Document is a parsed and validated OpenAPI document.
type Document struct {
	spec *openapi3.T
	root *yaml.Node
}

// Parse loads data (JSON or YAML) and validates it.
func Parse(ctx context.Context, data []byte) (*Document, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}

	doc := &Document{spec: spec}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err == nil {
		doc.root = &root
	}
	return doc, nil
}

// Schemas lists component schema names in lexical order.
func (d *Document) Schemas() []string {
	if d.spec.Components == nil {
		return nil
	}
	names := make([]string, 0, len(d.spec.Components.Schemas))
	for name := range d.spec.Components.Schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operations lists the ids of operations that accept a request body.
func (d *Document) Operations() []string {
	var ids []string
	if d.spec.Paths == nil {
		return nil
	}
	for _, item := range d.spec.Paths.Map() {
		for _, op := range item.Operations() {
			if op != nil && op.OperationID != "" && op.RequestBody != nil {
				ids = append(ids, op.OperationID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Fields builds descriptors for ref: a component schema name, a
// "#/components/schemas/..." pointer, or an operation id whose request body
// is used.
func (d *Document) Fields(ref string) ([]model.Field, error) {
	schema, component, err := d.lookup(strings.TrimSpace(ref))
	if err != nil {
		return nil, err
	}

	properties, required := collectProperties(schema)
	if len(properties) == 0 {
		return nil, fmt.Errorf("openapi: schema %q declares no properties", ref)
	}

	var declared []string
	if component != "" {
		declared = mappingKeys(d.root, "components", "schemas", component, "properties")
	}
	order := propertyOrder(properties, declared)

	b := builder.New(builder.WithLabeler(labels.Humanize))
	for _, name := range order {
		if err := applyProperty(b, name, properties[name].Value, required[name]); err != nil {
			return nil, fmt.Errorf("openapi: %s.%s: %w", ref, name, err)
		}
	}
	fields, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("openapi: %s: %w", ref, err)
	}
	return fields, nil
}

func (d *Document) lookup(ref string) (*openapi3.Schema, string, error) {
	name := strings.TrimPrefix(ref, componentSchemaPrefix)
	if d.spec.Components != nil {
		if schemaRef, ok := d.spec.Components.Schemas[name]; ok && schemaRef != nil && schemaRef.Value != nil {
			return schemaRef.Value, name, nil
		}
	}

	if d.spec.Paths != nil {
		for _, item := range d.spec.Paths.Map() {
			for _, op := range item.Operations() {
				if op == nil || op.OperationID != ref {
					continue
				}
				schemaRef := requestSchema(op)
				if schemaRef == nil || schemaRef.Value == nil {
					return nil, "", fmt.Errorf("%w: operation %q has no request body schema", ErrSchemaNotFound, ref)
				}
				return schemaRef.Value, strings.TrimPrefix(schemaRef.Ref, componentSchemaPrefix), nil
			}
		}
	}
	return nil, "", fmt.Errorf("%w: %q", ErrSchemaNotFound, ref)
}

func requestSchema(op *openapi3.Operation) *openapi3.SchemaRef {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "multipart/form-data", "application/x-www-form-urlencoded"} {
		if mt, ok := content[mediaType]; ok && mt != nil {
			return mt.Schema
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema
		}
	}
	return nil
}

// collectProperties flattens allOf members before the schema's own
// properties; later declarations win.
func collectProperties(schema *openapi3.Schema) (map[string]*openapi3.SchemaRef, map[string]bool) {
	properties := make(map[string]*openapi3.SchemaRef)
	required := make(map[string]bool)

	var walk func(s *openapi3.Schema)
	walk = func(s *openapi3.Schema) {
		if s == nil {
			return
		}
		for _, member := range s.AllOf {
			if member != nil {
				walk(member.Value)
			}
		}
		for name, prop := range s.Properties {
			if prop != nil && prop.Value != nil {
				properties[name] = prop
			}
		}
		for _, name := range s.Required {
			required[name] = true
		}
	}
	walk(schema)
	return properties, required
}

func applyProperty(b *builder.Builder, name string, s *openapi3.Schema, required bool) error {
	fb := b.FieldFor(name)
	typ := firstType(s.Type)
	source, _ := s.Extensions[ExtSource].(string)
	widget, _ := s.Extensions[ExtWidget].(string)

	switch {
	case strings.TrimSpace(source) != "":
		fb.SelectWithRemoteSource(source)
	case len(s.Enum) > 0:
		fb.Select(enumOptions(s))
	case strings.TrimSpace(widget) != "":
		fb.WithCustomControl(widget)
	case typ == "boolean":
		fb.Boolean()
	case typ == "integer" || typ == "number":
		fb.Number()
	case typ == "array":
		fb.ChipList()
	case typ == "string" && (s.Format == "binary" || s.Format == "byte"):
		accept, _ := s.Extensions[ExtAccept].(string)
		spec := builder.FileSpec{Accept: accept}
		if s.MaxLength != nil && *s.MaxLength > 0 {
			spec.MaxSizeKB = int((*s.MaxLength + 999) / 1000)
		}
		fb.File(spec)
	case typ == "string" && s.Format == "password":
		fb.Password()
	case typ == "string" && (s.Format == "date" || s.Format == "date-time"):
		fb.Date()
	case typ == "object":
		fb.WithCustomControl("object")
	default:
		if textArea, _ := s.Extensions[ExtTextArea].(bool); textArea || (s.MaxLength != nil && *s.MaxLength > longTextThreshold) {
			fb.TextArea(nil)
		}
	}

	if s.Title != "" {
		fb.WithLabel(s.Title)
	}
	if s.Description != "" {
		fb.WithTooltip(s.Description)
	}
	if example, ok := s.Example.(string); ok && example != "" {
		fb.WithPlaceholder(example)
	}
	if required {
		fb.Required()
	}
	if s.ReadOnly {
		fb.Disable()
	}
	if s.Nullable && fb.Descriptor().Type == model.FieldTypeSelect {
		fb.AllowNull("")
	}
	if s.Default != nil {
		fb.WithDefaultValue(s.Default)
	}
	if s.Format != "" {
		fb.WithMetadata("format", s.Format)
	}
	if rule, _ := s.Extensions[ExtVisibleWhen].(string); strings.TrimSpace(rule) != "" {
		if _, err := expr.Compile(rule); err != nil {
			return fmt.Errorf("openapi: %s: %w", name, err)
		}
		fb.VisibleWhen(strings.TrimSpace(rule))
	}

	if rules := schemaRules(s, fb.Descriptor().Type); len(rules) > 0 {
		fb.WithValidation(validation.Chain(rules...))
	}
	return nil
}

func schemaRules(s *openapi3.Schema, typ model.FieldType) []model.ValidateFunc {
	var rules []model.ValidateFunc
	if typ == model.FieldTypeFile {
		return nil
	}
	if s.MinLength > 0 {
		rules = append(rules, validation.MinLength(int(s.MinLength)))
	}
	if s.MaxLength != nil {
		rules = append(rules, validation.MaxLength(int(*s.MaxLength)))
	}
	if typ == model.FieldTypeChipList {
		if s.MinItems > 0 {
			rules = append(rules, validation.MinLength(int(s.MinItems)))
		}
		if s.MaxItems != nil {
			rules = append(rules, validation.MaxLength(int(*s.MaxItems)))
		}
	}
	if s.Pattern != "" {
		if fn, err := validation.Pattern(s.Pattern); err == nil {
			rules = append(rules, fn)
		}
	}
	if s.Min != nil {
		rules = append(rules, validation.Min(*s.Min))
	}
	if s.Max != nil {
		rules = append(rules, validation.Max(*s.Max))
	}
	return rules
}

func enumOptions(s *openapi3.Schema) []model.Option {
	names, _ := s.Extensions[ExtEnumNames].([]any)
	options := make([]model.Option, 0, len(s.Enum))
	for i, value := range s.Enum {
		if value == nil {
			continue
		}
		v := formatEnum(value)
		label := v
		if i < len(names) {
			if name, ok := names[i].(string); ok && name != "" {
				label = name
			}
		}
		options = append(options, model.Option{Value: v, Label: label})
	}
	return options
}

func formatEnum(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func firstType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	for _, t := range types.Slice() {
		if t != "null" {
			return t
		}
	}
	return ""
}

// propertyOrder keeps document order when it is known, appending the rest
// alphabetically. An explicit x-formbind-order wins over both.
func propertyOrder(properties map[string]*openapi3.SchemaRef, declared []string) []string {
	order := make([]string, 0, len(properties))
	seen := make(map[string]bool, len(properties))
	for _, name := range declared {
		if _, ok := properties[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	var rest []string
	for name := range properties {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	rank := func(name string) float64 {
		switch v := properties[name].Value.Extensions[ExtOrder].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		default:
			return float64(len(order))
		}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return rank(order[i]) < rank(order[j])
	})
	return order
}

// mappingKeys returns the keys, in document order, of the mapping found by
// following path from the document root.
func mappingKeys(root *yaml.Node, path ...string) []string {
	if root == nil {
		return nil
	}
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range path {
		node = mappingValue(node, key)
		if node == nil {
			return nil
		}
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
