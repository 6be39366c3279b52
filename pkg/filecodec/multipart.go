package filecodec

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/goliatone/go-formbind/pkg/model"
)

// WriteMultipart writes state as multipart form parts. String values are
// written verbatim, other values as JSON, nil values are skipped, and files
// become binary parts named after their property. The writer is not closed.
func WriteMultipart(w *multipart.Writer, state model.State) error {
	if w == nil {
		return fmt.Errorf("filecodec: multipart writer is nil")
	}

	for _, key := range sortedKeys(state.Values) {
		value := state.Values[key]
		if value == nil {
			continue
		}
		text, err := formValue(value)
		if err != nil {
			return fmt.Errorf("filecodec: encode field %q: %w", key, err)
		}
		if err := w.WriteField(key, text); err != nil {
			return fmt.Errorf("filecodec: write field %q: %w", key, err)
		}
	}

	fileKeys := make([]string, 0, len(state.Files))
	for key := range state.Files {
		fileKeys = append(fileKeys, key)
	}
	for _, key := range sortStrings(fileKeys) {
		file := state.Files[key]
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(file.Name)))
		mediaType := file.MediaType
		if mediaType == "" {
			mediaType = defaultBinType
		}
		header.Set("Content-Type", mediaType)

		part, err := w.CreatePart(header)
		if err != nil {
			return fmt.Errorf("filecodec: create part %q: %w", key, err)
		}
		if _, err := part.Write(file.Data); err != nil {
			return fmt.Errorf("filecodec: write part %q: %w", key, err)
		}
	}
	return nil
}

// ReadMultipart is the inverse of WriteMultipart for parsed forms: values
// come back as strings, files as FileValues.
func ReadMultipart(form *multipart.Form) (model.State, error) {
	state := model.NewState()
	if form == nil {
		return state, nil
	}
	for key, values := range form.Value {
		if len(values) > 0 {
			state.Values[key] = values[0]
		}
	}
	for key, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		header := headers[0]
		f, err := header.Open()
		if err != nil {
			return model.State{}, fmt.Errorf("filecodec: open part %q: %w", key, err)
		}
		data := make([]byte, header.Size)
		_, err = io.ReadFull(f, data)
		_ = f.Close()
		if err != nil {
			return model.State{}, fmt.Errorf("filecodec: read part %q: %w", key, err)
		}
		state.Files[key] = model.FileValue{
			Name:      header.Filename,
			MediaType: header.Header.Get("Content-Type"),
			Data:      data,
		}
	}
	return state, nil
}

func formValue(value any) (string, error) {
	switch typed := value.(type) {
	case string:
		return typed, nil
	case fmt.Stringer:
		return typed.String(), nil
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortStrings(values []string) []string {
	sort.Strings(values)
	return values
}
