package html

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
)

// DefaultMaxMemory bounds the multipart bytes held in memory while parsing.
const DefaultMaxMemory = 8 << 20

// ActionField names the submit button input rendered by the default template.
const ActionField = "_action"

const (
	ActionSave   = "save"
	ActionDelete = "delete"
)

// Submission is a decoded form post. Values holds only declared, enabled
// properties coerced to their descriptor types; Invalid lists values that
// could not be coerced, keyed by property.
type Submission struct {
	Action  string
	Values  map[string]any
	Files   map[string]model.FileValue
	Invalid map[string]string
	Hidden  map[string]string
}

// DecodeSubmission parses r as produced by the default template. A file
// input left empty is omitted from Files so the current file is kept. An
// unchecked checkbox decodes to false.
func DecodeSubmission(r *http.Request, fields []model.Field, maxMemory int64) (Submission, error) {
	if r == nil {
		return Submission{}, fmt.Errorf("html: missing request")
	}
	if maxMemory <= 0 {
		maxMemory = DefaultMaxMemory
	}

	raw := map[string][]string{}
	files := map[string]model.FileValue{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return Submission{}, fmt.Errorf("html: parse multipart form: %w", err)
		}
		state, err := filecodec.ReadMultipart(r.MultipartForm)
		if err != nil {
			return Submission{}, err
		}
		for key, values := range r.MultipartForm.Value {
			raw[key] = values
		}
		files = state.Files
	} else {
		if err := r.ParseForm(); err != nil {
			return Submission{}, fmt.Errorf("html: parse form: %w", err)
		}
		for key, values := range r.PostForm {
			raw[key] = values
		}
	}

	sub := Submission{
		Action:  first(raw[ActionField]),
		Values:  map[string]any{},
		Files:   map[string]model.FileValue{},
		Invalid: map[string]string{},
		Hidden:  map[string]string{},
	}
	if sub.Action == "" {
		sub.Action = ActionSave
	}

	declared := make(map[string]bool, len(fields))
	for _, field := range fields {
		declared[field.Property] = true
		if field.Disabled {
			continue
		}
		if field.Type == model.FieldTypeFile {
			if file, ok := files[field.Property]; ok && len(file.Data) > 0 {
				if file.MediaType == "" || file.MediaType == "application/octet-stream" {
					file.MediaType = filecodec.InferMediaType(file.Name, file.Data)
				}
				sub.Files[field.Property] = file
			}
			continue
		}
		values, present := raw[field.Property]
		value, err := coerce(field, values, present)
		if err != nil {
			sub.Invalid[field.Property] = err.Error()
			continue
		}
		if value == skip {
			continue
		}
		sub.Values[field.Property] = value
	}

	for key, values := range raw {
		if key == ActionField || declared[key] {
			continue
		}
		sub.Hidden[key] = first(values)
	}
	return sub, nil
}

type skipValue struct{}

// skip marks a property the post did not carry and whose value must be left
// untouched.
var skip any = skipValue{}

func coerce(field model.Field, values []string, present bool) (any, error) {
	if field.Type == model.FieldTypeBoolean {
		switch strings.ToLower(first(values)) {
		case "true", "on", "1", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
	if !present {
		return skip, nil
	}
	value := strings.TrimSpace(first(values))

	switch field.Type {
	case model.FieldTypeNumber:
		if value == "" {
			return nil, nil
		}
		num, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", value)
		}
		return num, nil
	case model.FieldTypeDate:
		if value == "" {
			return nil, nil
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return nil, fmt.Errorf("%q is not a date", value)
		}
		return value, nil
	case model.FieldTypeSelect:
		if value == "" {
			return nil, nil
		}
		return value, nil
	case model.FieldTypeChipList:
		chips := []string{}
		for _, raw := range values {
			for _, part := range strings.Split(raw, ",") {
				if chip := strings.TrimSpace(part); chip != "" {
					chips = append(chips, chip)
				}
			}
		}
		return chips, nil
	default:
		return first(values), nil
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
