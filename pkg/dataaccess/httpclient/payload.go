package httpclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
)

// ParseOptions reads an option list from a dictionary payload. The payload is
// either a bare array or an object holding the array at keys.ResultsPath.
// Items may be objects (read through ValueKey and LabelKey) or scalars, in
// which case the scalar is both value and label.
func ParseOptions(body []byte, keys DictionaryKeys) ([]model.Option, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("httpclient: dictionary payload is not valid json")
	}
	if keys.ValueKey == "" {
		keys.ValueKey = defaultValueKey
	}
	if keys.LabelKey == "" {
		keys.LabelKey = defaultLabelKey
	}

	root := gjson.ParseBytes(body)
	list := root
	if !root.IsArray() {
		path := keys.ResultsPath
		if path == "" {
			path = defaultResultsPath
		}
		list = root.Get(path)
		if !list.IsArray() {
			return nil, fmt.Errorf("httpclient: dictionary payload has no array at %q", path)
		}
	}

	options := make([]model.Option, 0, len(list.Array()))
	var parseErr error
	list.ForEach(func(_, item gjson.Result) bool {
		if item.IsObject() {
			value := item.Get(keys.ValueKey)
			if !value.Exists() {
				parseErr = fmt.Errorf("httpclient: dictionary item %s missing %q", item.Raw, keys.ValueKey)
				return false
			}
			label := item.Get(keys.LabelKey)
			labelText := label.String()
			if !label.Exists() {
				labelText = value.String()
			}
			options = append(options, model.Option{Value: value.String(), Label: labelText})
			return true
		}
		options = append(options, model.Option{Value: item.String(), Label: item.String()})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return options, nil
}

// ParseStatusError builds a StatusError from an error response. It accepts
// {"message": ...} or {"error": ...} for the summary and
// {"errors": {"field": "msg" | ["msg", ...]}} for field messages.
func ParseStatusError(op string, status int, body []byte) *dataaccess.StatusError {
	out := &dataaccess.StatusError{Op: op, StatusCode: status}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return out
	}
	if !gjson.Valid(trimmed) {
		out.Message = trimmed
		return out
	}

	root := gjson.Parse(trimmed)
	switch {
	case root.Get("message").Type == gjson.String:
		out.Message = root.Get("message").String()
	case root.Get("error").Type == gjson.String:
		out.Message = root.Get("error").String()
	case root.Get("error.message").Exists():
		out.Message = root.Get("error.message").String()
	}

	errs := root.Get("errors")
	if !errs.Exists() {
		errs = root.Get("error.errors")
	}
	if errs.IsObject() {
		out.FieldErrors = make(map[string][]string)
		errs.ForEach(func(key, value gjson.Result) bool {
			if value.IsArray() {
				for _, item := range value.Array() {
					if msg := strings.TrimSpace(item.String()); msg != "" {
						out.FieldErrors[key.String()] = append(out.FieldErrors[key.String()], msg)
					}
				}
				return true
			}
			if msg := strings.TrimSpace(value.String()); msg != "" {
				out.FieldErrors[key.String()] = append(out.FieldErrors[key.String()], msg)
			}
			return true
		})
		if len(out.FieldErrors) == 0 {
			out.FieldErrors = nil
		}
	}

	if root.IsObject() {
		var payload map[string]any
		if err := json.Unmarshal([]byte(trimmed), &payload); err == nil {
			out.Payload = payload
		}
	}
	return out
}
