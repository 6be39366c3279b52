package dictionaries

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// NewRouter returns a router serving provider under the default mount.
func NewRouter(provider Provider, fns ...OptionFn) (*mux.Router, error) {
	router := mux.NewRouter()
	if _, err := RegisterRoutes(router, "", provider, fns...); err != nil {
		return nil, err
	}
	return router, nil
}

// MountPath returns the full index path under basePath.
func MountPath(basePath string, fns ...OptionFn) string {
	opts := NewOptions(fns...)
	return mountPath(basePath, opts.RoutePath)
}

// SourcePath returns the path clients use to fetch source, suitable as a
// field's remote source when the API base URL points at the same server.
func SourcePath(basePath, source string, fns ...OptionFn) string {
	return MountPath(basePath, fns...) + "/" + strings.Trim(source, "/")
}

// RegisterRoutes mounts the index and options routes under basePath and
// returns the index path.
func RegisterRoutes(router *mux.Router, basePath string, provider Provider, fns ...OptionFn) (string, error) {
	if router == nil {
		return "", fmt.Errorf("dictionaries: missing router")
	}
	if provider == nil {
		return "", fmt.Errorf("dictionaries: missing provider")
	}
	opts := NewOptions(fns...)
	h := handler{provider: provider, opts: opts}

	pattern := mountPath(basePath, opts.RoutePath)
	methods := []string{http.MethodGet, http.MethodHead}
	index := pattern
	if index == "" {
		index = "/"
	}
	router.HandleFunc(index, h.index).Methods(methods...)
	router.HandleFunc(pattern+"/{"+DefaultSourceVarKey+"}", h.options).Methods(methods...)
	return index, nil
}

func mountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}
	routePath = strings.TrimRight(routePath, "/")

	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/") + routePath
}
