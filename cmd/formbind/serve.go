package main

import (
	"context"
	"errors"
	"fmt"
	stdhtml "html"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-formbind/components/dictionaries"
	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/declare"
	"github.com/goliatone/go-formbind/pkg/metrics"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/orchestrator"
	"github.com/goliatone/go-formbind/pkg/renderers/html"
	"github.com/goliatone/go-formbind/pkg/widgets"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"serve-dicts"},
		Short:   "Serve declared dictionaries and HTML forms over HTTP",
		Long: `serve exposes the declared dictionaries under /api/dictionaries, renders
declared forms under /forms/{form} (POST saves them) and, unless disabled
through serve.metrics, Prometheus metrics under /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Set(cfgKeyAddr, addr)
			}
			handler, err := a.serveHandler()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &http.Server{
				Addr:              a.cfg.GetString(cfgKeyAddr),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.WithField("addr", srv.Addr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// serveHandler builds the router used by serve.
func (a *app) serveHandler() (http.Handler, error) {
	catalog, err := a.catalog()
	if err != nil {
		return nil, err
	}
	dicts, err := catalog.Dictionaries()
	if err != nil {
		return nil, err
	}
	client, err := a.client(catalog)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	if _, err := dictionaries.RegisterRoutes(router, "", dictionaries.NewStatic(dicts), dictionaries.WithLogger(a.logger)); err != nil {
		return nil, err
	}

	forms := &formsHandler{app: a, catalog: catalog, client: client, widgets: widgets.NewRegistry()}
	if a.cfg.GetBool(cfgKeyMetrics) {
		forms.collector = metrics.NewCollector("")
		router.Handle("/metrics", forms.collector.Handler()).Methods(http.MethodGet)
	}
	router.HandleFunc("/forms", forms.index).Methods(http.MethodGet)
	router.HandleFunc("/forms/{form}", forms.show).Methods(http.MethodGet)
	router.HandleFunc("/forms/{form}", forms.submit).Methods(http.MethodPost)
	return router, nil
}

type formsHandler struct {
	app       *app
	catalog   *declare.Catalog
	client    dataaccess.Client
	collector *metrics.Collector
	widgets   *widgets.Registry
}

func (h *formsHandler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintln(w, "<ul>")
	for _, name := range h.catalog.Names() {
		fmt.Fprintf(w, "  <li><a href=\"/forms/%s\">%s</a></li>\n", url.PathEscape(name), stdhtml.EscapeString(name))
	}
	fmt.Fprintln(w, "</ul>")
}

func (h *formsHandler) open(r *http.Request) (*orchestrator.Orchestrator, *declare.Form, int, error) {
	name := mux.Vars(r)["form"]
	form, ok := h.catalog.Form(name)
	if !ok {
		return nil, nil, http.StatusNotFound, fmt.Errorf("form %q not found", name)
	}
	query := r.URL.Query()
	target, err := parseTarget(query.Get("mode"), query.Get("id"))
	if err != nil {
		return nil, nil, http.StatusBadRequest, err
	}
	fields, err := form.Build()
	if err != nil {
		return nil, nil, http.StatusInternalServerError, err
	}

	opts := []orchestrator.Option{
		orchestrator.WithLogger(h.app.logger.WithFields(logrus.Fields{"form": form.Resource, "remote": r.RemoteAddr})),
		orchestrator.WithBaseParams(h.app.params().Merge(form.BaseParams())),
	}
	if h.collector != nil {
		opts = append(opts, orchestrator.WithObserver(h.collector))
	}
	o := orchestrator.New(form.Resource, fields, h.client, opts...)
	if err := o.Initialize(r.Context(), target); err != nil {
		_ = o.Close()
		return nil, nil, http.StatusBadRequest, err
	}
	if err := o.Wait(r.Context()); err != nil {
		_ = o.Close()
		return nil, nil, http.StatusServiceUnavailable, err
	}
	return o, form, http.StatusOK, nil
}

func (h *formsHandler) show(w http.ResponseWriter, r *http.Request) {
	o, _, code, err := h.open(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}
	defer o.Close()
	h.render(w, r, o, http.StatusOK)
}

func (h *formsHandler) submit(w http.ResponseWriter, r *http.Request) {
	o, form, code, err := h.open(r)
	if err != nil {
		http.Error(w, err.Error(), code)
		return
	}
	defer o.Close()

	sub, err := html.DecodeSubmission(r, o.Fields(), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	log := h.app.logger.WithFields(logrus.Fields{"form": form.Resource, "action": sub.Action})
	ctx := r.Context()

	if sub.Action == html.ActionDelete {
		if err := o.Delete(ctx, "", nil); err != nil {
			log.WithError(err).Warn("delete failed")
			h.render(w, r, o, mutationStatus(err))
			return
		}
		http.Redirect(w, r, "/forms/"+url.PathEscape(form.Resource), http.StatusSeeOther)
		return
	}

	for property, value := range sub.Values {
		if err := o.SetValue(property, value); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	for property, file := range sub.Files {
		if err := o.SetFile(property, file); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if len(sub.Invalid) > 0 {
		o.Validate(nil)
		for property, msg := range sub.Invalid {
			_ = o.AddError(property, msg)
		}
		h.render(w, r, o, http.StatusUnprocessableEntity)
		return
	}

	callbacks := o.Callbacks()
	if callbacks.OnSave == nil {
		http.Error(w, "form is read only", http.StatusMethodNotAllowed)
		return
	}
	entity, err := callbacks.OnSave(ctx, nil)
	switch {
	case errors.Is(err, orchestrator.ErrInvalid):
		h.render(w, r, o, http.StatusUnprocessableEntity)
		return
	case err != nil:
		log.WithError(err).Warn("save failed")
		h.render(w, r, o, mutationStatus(err))
		return
	}

	target := "/forms/" + url.PathEscape(form.Resource)
	if id := entityID(entity); id != "" {
		target += "?id=" + url.QueryEscape(id)
	}
	log.WithField("id", entityID(entity)).Info("saved")
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *formsHandler) render(w http.ResponseWriter, r *http.Request, o *orchestrator.Orchestrator, code int) {
	renderer, err := html.New(html.WithAction(r.URL.RequestURI()), html.WithWidgets(h.widgets))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out, err := renderer.Render(r.Context(), o.View(), o.Callbacks())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", renderer.ContentType())
	w.WriteHeader(code)
	_, _ = w.Write(out)
}

// mutationStatus maps a failed save or delete onto a response status: client
// errors reported by the API are passed through, anything else is a bad
// gateway.
func mutationStatus(err error) int {
	var status *dataaccess.StatusError
	if errors.As(err, &status) && status.StatusCode >= 400 && status.StatusCode < 500 {
		return status.StatusCode
	}
	if errors.Is(err, orchestrator.ErrBusy) {
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func entityID(entity model.Entity) string {
	if entity == nil || entity["id"] == nil {
		return ""
	}
	return fmt.Sprint(entity["id"])
}
