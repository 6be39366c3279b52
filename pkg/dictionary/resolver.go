package dictionary

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Fetcher loads the options of one source. dataaccess.Client satisfies it.
type Fetcher interface {
	GetDictionary(ctx context.Context, source string) ([]model.Option, error)
}

// Result is the outcome of resolving one source.
type Result struct {
	Source  string
	Options []model.Option
	Err     error
	Cached  bool
	Elapsed time.Duration
}

// Resolver fetches remote option lists.
type Resolver struct {
	fetcher Fetcher
	cache   *Cache
	limiter *rate.Limiter
	logger  logrus.FieldLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache shares cache with the resolver. By default each resolver owns a
// private cache.
func WithCache(cache *Cache) Option {
	return func(r *Resolver) {
		if cache != nil {
			r.cache = cache
		}
	}
}

// WithRateLimit throttles fetches to rps with burst. Non-positive rps
// disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(r *Resolver) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a resolver backed by fetcher.
func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	resolver := &Resolver{
		fetcher: fetcher,
		cache:   NewCache(),
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}
	return resolver
}

// Cache exposes the resolver cache.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

// Resolve fetches every distinct source concurrently and calls deliver once
// per source as soon as its result is known. Cached sources are delivered
// without a fetch. Failed fetches are not cached. deliver may be called from
// several goroutines at once. Resolve returns after every delivery.
func (r *Resolver) Resolve(ctx context.Context, sources []string, deliver func(Result)) {
	if ctx == nil {
		ctx = context.Background()
	}
	if deliver == nil {
		deliver = func(Result) {}
	}

	var wg sync.WaitGroup
	for _, source := range Distinct(sources) {
		if options, ok := r.cache.Get(source); ok {
			deliver(Result{Source: source, Options: options, Cached: true})
			continue
		}
		wg.Add(1)
		go func(source string) {
			defer wg.Done()
			deliver(r.fetch(ctx, source))
		}(source)
	}
	wg.Wait()
}

// ResolveAll is Resolve collecting results by source.
func (r *Resolver) ResolveAll(ctx context.Context, sources []string) map[string]Result {
	var mu sync.Mutex
	out := make(map[string]Result, len(sources))
	r.Resolve(ctx, sources, func(result Result) {
		mu.Lock()
		out[result.Source] = result
		mu.Unlock()
	})
	return out
}

func (r *Resolver) fetch(ctx context.Context, source string) (result Result) {
	result.Source = source
	log := r.logger.WithField("source", source)
	started := time.Now()
	defer func() {
		result.Elapsed = time.Since(started)
	}()

	defer func() {
		if recovered := recover(); recovered != nil {
			result = Result{Source: source, Err: fmt.Errorf("dictionary: fetch %q panicked: %v", source, recovered)}
			log.WithError(result.Err).Error("dictionary fetch panicked")
		}
	}()

	if r.fetcher == nil {
		result.Err = fmt.Errorf("dictionary: no fetcher configured for %q", source)
		return result
	}
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			result.Err = fmt.Errorf("dictionary: fetch %q: %w", source, err)
			return result
		}
	}

	options, err := r.fetcher.GetDictionary(ctx, source)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		result.Err = fmt.Errorf("dictionary: fetch %q: %w", source, err)
		log.WithError(err).Warn("dictionary fetch failed")
		return result
	}

	result.Options = cloneOptions(options)
	r.cache.Put(source, result.Options)
	log.WithField("options", len(result.Options)).Debug("dictionary resolved")
	return result
}

// Sources lists the distinct remote sources declared by fields, in field
// order.
func Sources(fields []model.Field) []string {
	raw := make([]string, 0, len(fields))
	for _, field := range fields {
		if field.Type == model.FieldTypeSelect {
			raw = append(raw, field.RemoteSource)
		}
	}
	return Distinct(raw)
}

// Distinct trims, drops blanks, and removes duplicates while keeping order.
func Distinct(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, source := range sources {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		out = append(out, source)
	}
	return out
}

// Patch writes options onto every select descriptor in fields bound to
// source and reports how many were updated.
func Patch(fields []model.Field, source string, options []model.Option) int {
	patched := 0
	for i := range fields {
		if fields[i].Type != model.FieldTypeSelect || strings.TrimSpace(fields[i].RemoteSource) != source {
			continue
		}
		fields[i].Options = cloneOptions(options)
		patched++
	}
	return patched
}
