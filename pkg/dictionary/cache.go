// Package dictionary resolves remote option sources ("dictionaries") for
// select descriptors. A Resolver fetches each distinct source on its own
// goroutine and stores results in a Cache owned by a single orchestrator.
package dictionary

import (
	"sort"
	"sync"

	"github.com/goliatone/go-formbind/pkg/model"
)

// Cache maps a source identifier to its resolved options. It is safe for
// concurrent use; the last write for a source wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]model.Option
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]model.Option)}
}

// Get returns a copy of the cached options for source.
func (c *Cache) Get(source string) ([]model.Option, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	options, ok := c.entries[source]
	if !ok {
		return nil, false
	}
	return cloneOptions(options), true
}

// Put stores options for source.
func (c *Cache) Put(source string, options []model.Option) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]model.Option)
	}
	c.entries[source] = cloneOptions(options)
}

// Invalidate drops the given sources, or every entry when none are given.
func (c *Cache) Invalidate(sources ...string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(sources) == 0 {
		c.entries = make(map[string][]model.Option)
		return
	}
	for _, source := range sources {
		delete(c.entries, source)
	}
}

// Sources lists the cached source identifiers in lexical order.
func (c *Cache) Sources() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for source := range c.entries {
		out = append(out, source)
	}
	sort.Strings(out)
	return out
}

func cloneOptions(options []model.Option) []model.Option {
	out := make([]model.Option, len(options))
	copy(out, options)
	return out
}
