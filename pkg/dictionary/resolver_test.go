package dictionary_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formbind/pkg/dataaccess/memory"
	"github.com/goliatone/go-formbind/pkg/dictionary"
	"github.com/goliatone/go-formbind/pkg/model"
)

type stubFetcher struct {
	calls   atomic.Int32
	options map[string][]model.Option
	errs    map[string]error
	wait    chan struct{}
}

func (s *stubFetcher) GetDictionary(ctx context.Context, source string) ([]model.Option, error) {
	s.calls.Add(1)
	if s.wait != nil {
		select {
		case <-s.wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.errs[source]; err != nil {
		return nil, err
	}
	return s.options[source], nil
}

func TestResolve_DeliversEachSourceOnce(t *testing.T) {
	fetcher := &stubFetcher{options: map[string][]model.Option{
		"roles": {{Value: "a", Label: "A"}},
		"tags":  {{Value: "t", Label: "T"}},
	}}
	resolver := dictionary.NewResolver(fetcher)

	got := resolver.ResolveAll(context.Background(), []string{"roles", " tags ", "roles", ""})
	if len(got) != 2 {
		t.Fatalf("expected two results, got %d", len(got))
	}
	if diff := cmp.Diff([]model.Option{{Value: "a", Label: "A"}}, got["roles"].Options); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}
	if fetcher.calls.Load() != 2 {
		t.Fatalf("expected two fetches, got %d", fetcher.calls.Load())
	}

	again := resolver.ResolveAll(context.Background(), []string{"roles"})
	if !again["roles"].Cached {
		t.Fatalf("expected cached result on second resolve")
	}
	if fetcher.calls.Load() != 2 {
		t.Fatalf("cache hit must not fetch, calls=%d", fetcher.calls.Load())
	}
}

func TestResolve_FailureNotCached(t *testing.T) {
	boom := errors.New("boom")
	fetcher := &stubFetcher{errs: map[string]error{"roles": boom}}
	resolver := dictionary.NewResolver(fetcher)

	got := resolver.ResolveAll(context.Background(), []string{"roles"})
	if !errors.Is(got["roles"].Err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", got["roles"].Err)
	}
	if _, ok := resolver.Cache().Get("roles"); ok {
		t.Fatalf("failed fetch must not be cached")
	}
}

func TestResolve_Concurrent(t *testing.T) {
	store := memory.New()
	for _, source := range []string{"a", "b", "c"} {
		store.SetDictionary(source, []model.Option{{Value: source, Label: source}})
	}
	release := store.Block(memory.OpGetDictionary)

	resolver := dictionary.NewResolver(store)
	done := make(chan map[string]dictionary.Result, 1)
	go func() {
		done <- resolver.ResolveAll(context.Background(), []string{"a", "b", "c"})
	}()

	deadline := time.Now().Add(time.Second)
	for len(store.CallsFor(memory.OpGetDictionary)) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected three fetches in flight, got %d", len(store.CallsFor(memory.OpGetDictionary)))
		}
		time.Sleep(time.Millisecond)
	}
	release()

	results := <-done
	for _, source := range []string{"a", "b", "c"} {
		if results[source].Err != nil || len(results[source].Options) != 1 {
			t.Fatalf("unexpected result for %s: %+v", source, results[source])
		}
	}
}

func TestResolve_Cancelled(t *testing.T) {
	fetcher := &stubFetcher{wait: make(chan struct{})}
	resolver := dictionary.NewResolver(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu      sync.Mutex
		results []dictionary.Result
	)
	finished := make(chan struct{})
	go func() {
		resolver.Resolve(ctx, []string{"roles"}, func(r dictionary.Result) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		})
		close(finished)
	}()
	cancel()
	<-finished

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
		t.Fatalf("expected a cancelled result, got %+v", results)
	}
}

func TestSourcesAndPatch(t *testing.T) {
	fields := []model.Field{
		{Property: "role", Type: model.FieldTypeSelect, RemoteSource: "roles"},
		{Property: "name", Type: model.FieldTypeText},
		{Property: "backup_role", Type: model.FieldTypeSelect, RemoteSource: "roles"},
		{Property: "tag", Type: model.FieldTypeSelect, RemoteSource: "tags"},
		{Property: "color", Type: model.FieldTypeSelect, Options: []model.Option{}},
	}
	if diff := cmp.Diff([]string{"roles", "tags"}, dictionary.Sources(fields)); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}

	options := []model.Option{{Value: "x", Label: "X"}}
	if n := dictionary.Patch(fields, "roles", options); n != 2 {
		t.Fatalf("expected two patched fields, got %d", n)
	}
	if diff := cmp.Diff(options, fields[2].Options); diff != "" {
		t.Fatalf("patched options mismatch (-want +got):\n%s", diff)
	}
	if fields[3].Options != nil {
		t.Fatalf("unrelated source must stay unresolved")
	}
}

func TestCacheInvalidate(t *testing.T) {
	cache := dictionary.NewCache()
	cache.Put("a", nil)
	cache.Put("b", []model.Option{{Value: "1"}})
	cache.Put("c", []model.Option{})

	for _, source := range []string{"a", "c"} {
		if got, ok := cache.Get(source); !ok || got == nil || len(got) != 0 {
			t.Fatalf("expected empty non-nil options for %s, got %#v", source, got)
		}
	}
	cache.Invalidate("c")
	cache.Invalidate("a")
	if diff := cmp.Diff([]string{"b"}, cache.Sources()); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
	cache.Invalidate()
	if len(cache.Sources()) != 0 {
		t.Fatalf("expected empty cache")
	}
}
