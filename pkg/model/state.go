package model

import "bytes"

// Entity is the wire form of a record as exchanged with the data-access
// layer.
type Entity map[string]any

// FileValue is a decoded binary payload bound to a file-typed property.
type FileValue struct {
	Name      string `json:"name"`
	MediaType string `json:"mediaType"`
	Data      []byte `json:"-"`
}

// Equal reports whether both values carry the same name, media type, and
// bytes.
func (f FileValue) Equal(other FileValue) bool {
	return f.Name == other.Name && f.MediaType == other.MediaType && bytes.Equal(f.Data, other.Data)
}

// Size returns the payload length in bytes.
func (f FileValue) Size() int64 {
	return int64(len(f.Data))
}

// State is the in-memory value set of the entity being edited. Files are
// kept apart from Values; a property never appears in both.
type State struct {
	Values map[string]any       `json:"values"`
	Files  map[string]FileValue `json:"files,omitempty"`
}

// NewState returns an empty state with allocated maps.
func NewState() State {
	return State{
		Values: make(map[string]any),
		Files:  make(map[string]FileValue),
	}
}

// Get resolves a property from Values or Files. File properties return the
// FileValue.
func (s State) Get(property string) (any, bool) {
	if file, ok := s.Files[property]; ok {
		return file, true
	}
	value, ok := s.Values[property]
	return value, ok
}

// Clone deep copies the state so callers can never alias live data.
func (s State) Clone() State {
	out := State{
		Values: make(map[string]any, len(s.Values)),
		Files:  make(map[string]FileValue, len(s.Files)),
	}
	for key, value := range s.Values {
		out.Values[key] = CloneValue(value)
	}
	for key, file := range s.Files {
		file.Data = append([]byte(nil), file.Data...)
		out.Files[key] = file
	}
	return out
}

// With returns a copy of the state with property set to value. Any file
// previously bound to the property is dropped.
func (s State) With(property string, value any) State {
	out := s.Clone()
	delete(out.Files, property)
	out.Values[property] = CloneValue(value)
	return out
}

// WithFile returns a copy of the state with file bound to property.
func (s State) WithFile(property string, file FileValue) State {
	out := s.Clone()
	delete(out.Values, property)
	file.Data = append([]byte(nil), file.Data...)
	out.Files[property] = file
	return out
}

// Without returns a copy of the state with property removed from both maps.
func (s State) Without(property string) State {
	out := s.Clone()
	delete(out.Values, property)
	delete(out.Files, property)
	return out
}

// CloneValue deep copies maps and slices produced by JSON decoding or by
// callers; scalars are returned as is.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = CloneValue(v)
		}
		return clone
	case Entity:
		clone := make(Entity, len(typed))
		for k, v := range typed {
			clone[k] = CloneValue(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = CloneValue(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	case []byte:
		return append([]byte(nil), typed...)
	default:
		return typed
	}
}

// IsEmpty reports whether value counts as missing for required checks: nil,
// a nil pointer-like value, or the empty string.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case *string:
		return typed == nil
	default:
		return false
	}
}
