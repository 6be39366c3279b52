package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/dataaccess/httpclient"
	"github.com/goliatone/go-formbind/pkg/dataaccess/memory"
	"github.com/goliatone/go-formbind/pkg/declare"
	"github.com/goliatone/go-formbind/pkg/renderers/tui"
)

// app carries what the commands share once configuration is loaded.
type app struct {
	out    io.Writer
	errOut io.Writer

	configFile string
	cfg        *viper.Viper
	logger     *logrus.Logger

	// driver overrides the interactive prompt driver used by fill.
	driver tui.PromptDriver
}

func newApp(out, errOut io.Writer) *app {
	logger := logrus.New()
	logger.SetOutput(errOut)
	return &app{out: out, errOut: errOut, logger: logger}
}

func (a *app) configure() error {
	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := logrus.ParseLevel(cfg.GetString(cfgKeyLogLevel))
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.logger.SetLevel(level)
	switch strings.ToLower(cfg.GetString(cfgKeyLogFormat)) {
	case "json":
		a.logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		a.logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

func (a *app) catalog() (*declare.Catalog, error) {
	dir := a.cfg.GetString(cfgKeyFormsDir)
	catalog, err := declare.LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load forms from %s: %w", dir, err)
	}
	return catalog, nil
}

func (a *app) form(name string) (*declare.Form, *declare.Catalog, error) {
	catalog, err := a.catalog()
	if err != nil {
		return nil, nil, err
	}
	form, ok := catalog.Form(name)
	if !ok {
		return nil, nil, fmt.Errorf("form %q not found (known: %s)", name, strings.Join(catalog.Names(), ", "))
	}
	return form, catalog, nil
}

// client talks to the configured API. Without a base URL it falls back to an
// in-memory store holding the declared dictionaries, which is enough to try a
// form out.
func (a *app) client(catalog *declare.Catalog) (dataaccess.Client, error) {
	base := strings.TrimSpace(a.cfg.GetString(cfgKeyBaseURL))
	if base == "" {
		a.logger.Debug("no api.base_url configured, using in-memory store")
		store := memory.New()
		dicts, err := catalog.Dictionaries()
		if err != nil {
			return nil, err
		}
		for source, options := range dicts {
			store.SetDictionary(source, options)
		}
		return store, nil
	}

	opts := []httpclient.Option{
		httpclient.WithTimeout(a.cfg.GetDuration(cfgKeyTimeout)),
		httpclient.WithRateLimit(a.cfg.GetFloat64(cfgKeyRateLimit), a.cfg.GetInt(cfgKeyBurst)),
		httpclient.WithLogger(a.logger),
	}
	for key, value := range a.cfg.GetStringMapString(cfgKeyHeaders) {
		opts = append(opts, httpclient.WithHeader(key, value))
	}
	return httpclient.New(base, opts...)
}

func (a *app) params() dataaccess.Params {
	raw := a.cfg.GetStringMap(cfgKeyParams)
	if len(raw) == 0 {
		return nil
	}
	return dataaccess.Params(raw)
}
