// Package dataaccess defines the transport contract the orchestrator uses to
// fetch, create, update, and delete entities and to resolve dictionaries.
//
// Two implementations ship with the module: httpclient talks to a JSON API
// over net/http and memory keeps everything in process for tests and demos.
package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/goliatone/go-formbind/pkg/model"
)

// ErrNotFound is returned by clients when the requested entity or dictionary
// does not exist.
var ErrNotFound = errors.New("dataaccess: not found")

// Client is the data-access contract. Implementations must be safe for
// concurrent use.
type Client interface {
	GetEntity(ctx context.Context, resource, id string) (model.Entity, error)
	GetDictionary(ctx context.Context, source string) ([]model.Option, error)
	CreateEntity(ctx context.Context, resource string, payload model.State, opts MutateOptions) (model.Entity, error)
	UpdateEntity(ctx context.Context, resource, id string, payload model.State, opts MutateOptions) (model.Entity, error)
	DeleteEntity(ctx context.Context, resource, id string, opts DeleteOptions) error
}

// MutateOptions controls how a create or update is transmitted.
type MutateOptions struct {
	// Multipart requests a multipart body. It is set whenever the form
	// declares at least one file field.
	Multipart bool
	Params    Params
}

// DeleteOptions controls how a delete is transmitted.
type DeleteOptions struct {
	Params Params
}

// Params carries request parameters (typically sent as the query string).
type Params map[string]any

// Merge returns a new Params holding p overlaid with overrides. Keys present
// in overrides win. Neither input is modified.
func (p Params) Merge(overrides Params) Params {
	out := make(Params, len(p)+len(overrides))
	for key, value := range p {
		out[key] = value
	}
	for key, value := range overrides {
		out[key] = value
	}
	return out
}

// Clone returns a shallow copy; nil stays nil.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	return p.Merge(nil)
}

// Query renders the params as url.Values. Slices expand to repeated keys;
// nil values are skipped.
func (p Params) Query() url.Values {
	values := make(url.Values, len(p))
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch typed := p[key].(type) {
		case nil:
		case []string:
			for _, item := range typed {
				values.Add(key, item)
			}
		case []any:
			for _, item := range typed {
				values.Add(key, fmt.Sprint(item))
			}
		default:
			values.Set(key, fmt.Sprint(typed))
		}
	}
	return values
}

// StatusError reports a non-successful response. FieldErrors holds any
// per-property messages the server returned; Payload keeps the decoded error
// body for callers that need more.
type StatusError struct {
	Op          string
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
	Payload     map[string]any
}

func (e *StatusError) Error() string {
	var b strings.Builder
	b.WriteString("dataaccess: ")
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	fmt.Fprintf(&b, "status %d", e.StatusCode)
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == 404
}

// HasFieldErrors reports whether the response carried per-property messages.
func (e *StatusError) HasFieldErrors() bool {
	return e != nil && len(e.FieldErrors) > 0
}
