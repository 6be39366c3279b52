package dictionaries

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formbind/pkg/model"
)

// HTTPError lets guard errors pick the response status.
type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

type optionsResponse struct {
	Data []model.Option `json:"data"`
}

type sourcesResponse struct {
	Data []string `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type handler struct {
	provider Provider
	opts     Options
}

func (h handler) index(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}
	lister, ok := h.provider.(Lister)
	if !ok {
		writeError(w, http.StatusNotFound, "dictionary index not available")
		return
	}
	sources := lister.Sources()
	if sources == nil {
		sources = []string{}
	}
	writeJSON(w, r, sourcesResponse{Data: sources})
}

func (h handler) options(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r) {
		return
	}
	source := mux.Vars(r)[DefaultSourceVarKey]
	log := h.opts.Logger.WithFields(logrus.Fields{"source": source})

	options, err := h.provider.Options(r.Context(), source)
	switch {
	case errors.Is(err, ErrUnknownSource):
		log.Debug("dictionaries: unknown source")
		writeError(w, http.StatusNotFound, "unknown dictionary "+strconv.Quote(source))
		return
	case err != nil:
		log.WithError(err).Warn("dictionaries: provider failed")
		writeError(w, http.StatusBadGateway, "dictionary unavailable")
		return
	}

	query := r.URL.Query().Get(h.opts.SearchParam)
	limit := parseInt(r.URL.Query().Get(h.opts.LimitParam))
	results := Search(options, query, limit, h.opts)
	if results == nil {
		results = []model.Option{}
	}
	log.WithFields(logrus.Fields{"query": query, "count": len(results)}).Debug("dictionaries: served")
	writeJSON(w, r, optionsResponse{Data: results})
}

func (h handler) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.opts.Guard == nil {
		return true
	}
	if err := h.opts.Guard(r); err != nil {
		writeGuardError(w, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Message: message}})
}

func writeGuardError(w http.ResponseWriter, err error) {
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		if c := httpErr.StatusCode(); c > 0 {
			code = c
		}
	}
	writeError(w, code, http.StatusText(code))
}

func parseInt(raw string) int {
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
