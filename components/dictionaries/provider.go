package dictionaries

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
)

// ErrUnknownSource reports a dictionary the provider does not know.
var ErrUnknownSource = errors.New("dictionaries: unknown source")

// Provider yields the options of a named source.
type Provider interface {
	Options(ctx context.Context, source string) ([]model.Option, error)
}

// Lister is implemented by providers that can enumerate their sources. The
// index route is only served for listers.
type Lister interface {
	Sources() []string
}

// Static is an in-process provider, safe for concurrent use.
type Static struct {
	mu   sync.RWMutex
	sets map[string][]model.Option
}

var (
	_ Provider = (*Static)(nil)
	_ Lister   = (*Static)(nil)
)

func NewStatic(sets map[string][]model.Option) *Static {
	s := &Static{sets: make(map[string][]model.Option, len(sets))}
	for source, options := range sets {
		s.Set(source, options)
	}
	return s
}

// Set replaces the options of source.
func (s *Static) Set(source string, options []model.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[source] = append([]model.Option(nil), options...)
}

func (s *Static) Options(_ context.Context, source string) ([]model.Option, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	options, ok := s.sets[source]
	if !ok {
		return nil, ErrUnknownSource
	}
	return append([]model.Option(nil), options...), nil
}

func (s *Static) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sets))
	for source := range s.sets {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

// FromClient proxies a data-access client, so a component can re-serve
// dictionaries held by another backend or by the in-memory store.
func FromClient(client dataaccess.Client) Provider {
	return clientProvider{client: client}
}

type clientProvider struct {
	client dataaccess.Client
}

func (p clientProvider) Options(ctx context.Context, source string) ([]model.Option, error) {
	if p.client == nil {
		return nil, errors.New("dictionaries: missing client")
	}
	options, err := p.client.GetDictionary(ctx, source)
	if errors.Is(err, dataaccess.ErrNotFound) {
		return nil, errors.Join(ErrUnknownSource, err)
	}
	return options, err
}
