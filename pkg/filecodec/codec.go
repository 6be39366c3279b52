// Package filecodec converts file values between their transmittable form,
// an object {"name": ..., "data": "data:<media type>;base64,<payload>"}, and
// model.FileValue, and writes multipart bodies for payloads that carry files.
package filecodec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/goliatone/go-formbind/pkg/model"
)

const (
	keyName = "name"
	keyData = "data"

	dataURLPrefix  = "data:"
	base64Marker   = ";base64"
	defaultBinType = "application/octet-stream"
)

var (
	// ErrFilesRequireMultipart is returned when a payload holding files is
	// about to be sent as a structured body.
	ErrFilesRequireMultipart = errors.New("filecodec: file values require a multipart payload")
	// ErrMalformedDataURL is returned when a data field cannot be decoded.
	ErrMalformedDataURL = errors.New("filecodec: malformed data url")
)

// Encode returns the transmittable representation of file.
func Encode(file model.FileValue) map[string]any {
	return map[string]any{
		keyName: file.Name,
		keyData: EncodeDataURL(file.MediaType, file.Data),
	}
}

// EncodeDataURL formats data as a base64 data URL.
func EncodeDataURL(mediaType string, data []byte) string {
	var b strings.Builder
	b.WriteString(dataURLPrefix)
	b.WriteString(mediaType)
	b.WriteString(base64Marker)
	b.WriteString(",")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// IsEncodedFile reports whether value has the {name, data} shape: a string
// name, possibly empty, and a non-empty string data member.
func IsEncodedFile(value any) bool {
	obj, ok := asObject(value)
	if !ok {
		return false
	}
	if _, ok := obj[keyName].(string); !ok {
		return false
	}
	data, _ := obj[keyData].(string)
	return data != ""
}

// Decode converts a {name, data} value into a FileValue. The media type is
// taken from the data URL header; raw base64 payloads fall back to the file
// extension and then to content sniffing.
func Decode(value any) (model.FileValue, error) {
	if !IsEncodedFile(value) {
		return model.FileValue{}, fmt.Errorf("filecodec: value is not an encoded file")
	}
	obj, _ := asObject(value)
	name := obj[keyName].(string)
	raw := obj[keyData].(string)

	if strings.HasPrefix(raw, dataURLPrefix) {
		mediaType, data, err := DecodeDataURL(raw)
		if err != nil {
			return model.FileValue{}, fmt.Errorf("filecodec: decode %q: %w", name, err)
		}
		return model.FileValue{Name: name, MediaType: mediaType, Data: data}, nil
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return model.FileValue{}, fmt.Errorf("filecodec: decode %q: %w", name, err)
	}
	return model.FileValue{Name: name, MediaType: InferMediaType(name, data), Data: data}, nil
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(raw string) (string, []byte, error) {
	if !strings.HasPrefix(raw, dataURLPrefix) {
		return "", nil, ErrMalformedDataURL
	}
	header, payload, found := strings.Cut(strings.TrimPrefix(raw, dataURLPrefix), ",")
	if !found {
		return "", nil, ErrMalformedDataURL
	}
	if !strings.HasSuffix(header, base64Marker) {
		return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrMalformedDataURL)
	}
	mediaType := strings.TrimSuffix(header, base64Marker)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformedDataURL, err)
	}
	return mediaType, data, nil
}

// InferMediaType guesses a media type from the file name, then from the
// leading bytes of data.
func InferMediaType(name string, data []byte) string {
	if ext := filepath.Ext(name); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	if len(data) == 0 {
		return defaultBinType
	}
	return http.DetectContentType(data)
}

// DecodeEntity splits a received entity into a State: encoded file values
// become FileValues, everything else passes through unchanged.
func DecodeEntity(entity model.Entity) (model.State, error) {
	state := model.NewState()
	for key, value := range entity {
		if IsEncodedFile(value) {
			file, err := Decode(value)
			if err != nil {
				return model.State{}, err
			}
			state.Files[key] = file
			continue
		}
		state.Values[key] = model.CloneValue(value)
	}
	return state, nil
}

// EncodeState flattens a state back into the entity shape, encoding files
// inline.
func EncodeState(state model.State) model.Entity {
	out := make(model.Entity, len(state.Values)+len(state.Files))
	for key, value := range state.Values {
		out[key] = model.CloneValue(value)
	}
	for key, file := range state.Files {
		out[key] = Encode(file)
	}
	return out
}

// CheckStructured rejects states holding files; structured payloads cannot
// carry binary parts.
func CheckStructured(state model.State) error {
	if len(state.Files) == 0 {
		return nil
	}
	names := make([]string, 0, len(state.Files))
	for key := range state.Files {
		names = append(names, key)
	}
	return fmt.Errorf("%w (%s)", ErrFilesRequireMultipart, strings.Join(sortStrings(names), ", "))
}

func asObject(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case model.Entity:
		return map[string]any(typed), true
	default:
		return nil, false
	}
}
