package openapi

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SourceKind tells the loader how to resolve a Source.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies where an OpenAPI document lives.
type Source interface {
	Location() string
	Kind() SourceKind
}

type source struct {
	location string
	kind     SourceKind
}

func (s source) Location() string { return s.location }
func (s source) Kind() SourceKind { return s.kind }

// SourceFromFile points at a document on disk.
func SourceFromFile(path string) Source {
	return source{location: filepath.Clean(path), kind: SourceKindFile}
}

// SourceFromFS points at a document inside the loader's fs.FS.
func SourceFromFS(name string) Source {
	return source{location: name, kind: SourceKindFS}
}

// SourceFromURL validates raw and points at a remote document.
func SourceFromURL(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("openapi: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("openapi: invalid URL %q: %w", raw, err)
	}
	return source{location: raw, kind: SourceKindURL}, nil
}

// ParseSource picks the source kind from the shape of ref: http(s) URLs
// load remotely, everything else from disk.
func ParseSource(ref string) (Source, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return SourceFromURL(ref)
	}
	if ref == "" {
		return nil, fmt.Errorf("openapi: empty source")
	}
	return SourceFromFile(ref), nil
}
