package dictionaries

import (
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DefaultRoutePath    = "/api/dictionaries"
	DefaultSearchParam  = "q"
	DefaultLimitParam   = "limit"
	DefaultLimit        = 100
	DefaultMaxLimit     = 1000
	DefaultSourceVarKey = "source"
)

// EmptySearchMode decides what an empty query returns.
type EmptySearchMode string

const (
	// EmptySearchAll returns the first limit options in declaration order.
	EmptySearchAll EmptySearchMode = "all"
	// EmptySearchNone returns no options until the caller types something.
	EmptySearchNone EmptySearchMode = "none"
)

// Guard authorises a request. Returning an error implementing HTTPError
// selects the response status; any other error yields 403.
type Guard func(r *http.Request) error

type Options struct {
	RoutePath       string
	SearchParam     string
	LimitParam      string
	DefaultLimit    int
	MaxLimit        int
	EmptySearchMode EmptySearchMode
	Guard           Guard
	Logger          logrus.FieldLogger
}

type OptionFn func(*Options)

// NewOptions applies fns over the defaults and clamps the result.
func NewOptions(fns ...OptionFn) Options {
	opts := Options{
		RoutePath:       DefaultRoutePath,
		SearchParam:     DefaultSearchParam,
		LimitParam:      DefaultLimitParam,
		DefaultLimit:    DefaultLimit,
		MaxLimit:        DefaultMaxLimit,
		EmptySearchMode: EmptySearchAll,
	}
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}

	opts.RoutePath = strings.TrimSpace(opts.RoutePath)
	if opts.RoutePath == "" {
		opts.RoutePath = DefaultRoutePath
	}
	if strings.TrimSpace(opts.SearchParam) == "" {
		opts.SearchParam = DefaultSearchParam
	}
	if strings.TrimSpace(opts.LimitParam) == "" {
		opts.LimitParam = DefaultLimitParam
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = DefaultMaxLimit
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	switch opts.EmptySearchMode {
	case EmptySearchAll, EmptySearchNone:
	default:
		opts.EmptySearchMode = EmptySearchAll
	}
	if opts.Logger == nil {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		opts.Logger = logger
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) { o.RoutePath = path }
}

func WithLimits(defaultLimit, maxLimit int) OptionFn {
	return func(o *Options) {
		o.DefaultLimit = defaultLimit
		o.MaxLimit = maxLimit
	}
}

func WithEmptySearchMode(mode EmptySearchMode) OptionFn {
	return func(o *Options) { o.EmptySearchMode = mode }
}

func WithGuard(guard Guard) OptionFn {
	return func(o *Options) { o.Guard = guard }
}

func WithLogger(logger logrus.FieldLogger) OptionFn {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

func clampLimit(limit int, opts Options) int {
	if limit <= 0 {
		limit = opts.DefaultLimit
	}
	if limit > opts.MaxLimit {
		limit = opts.MaxLimit
	}
	return limit
}
