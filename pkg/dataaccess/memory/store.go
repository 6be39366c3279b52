// Package memory provides an in-process dataaccess.Client. Entities are kept
// per resource, dictionaries per source. Every call is logged and calls can be
// delayed, blocked, or failed on demand, which makes the store the backbone
// of orchestrator tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
)

// Operation names used in the call log and for fault injection.
const (
	OpGetEntity     = "get entity"
	OpGetDictionary = "get dictionary"
	OpCreateEntity  = "create entity"
	OpUpdateEntity  = "update entity"
	OpDeleteEntity  = "delete entity"
)

// Call records one invocation of the store.
type Call struct {
	Op        string
	Resource  string
	ID        string
	Source    string
	Multipart bool
	Params    dataaccess.Params
	Payload   model.State
}

// Store is a thread-safe in-memory dataaccess.Client.
type Store struct {
	mu      sync.RWMutex
	tables  map[string]map[string]model.Entity
	dicts   map[string][]model.Option
	calls   []Call
	faults  map[string]error
	gates   map[string]chan struct{}
	latency time.Duration
	newID   func() string
}

var _ dataaccess.Client = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLatency delays every call by d.
func WithLatency(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.latency = d
		}
	}
}

// WithIDGenerator replaces the uuid based id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	store := &Store{
		tables: make(map[string]map[string]model.Entity),
		dicts:  make(map[string][]model.Option),
		faults: make(map[string]error),
		gates:  make(map[string]chan struct{}),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Seed stores entity under resource/id, replacing any previous record.
func (s *Store) Seed(resource, id string, entity model.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(resource)[id] = cloneEntity(entity)
}

// SetDictionary registers the options returned for source.
func (s *Store) SetDictionary(source string, options []model.Option) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dicts[source] = append([]model.Option(nil), options...)
}

// Fail makes every call of op return err until cleared with a nil err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Block holds every call of op until the returned release func runs or the
// call's context ends. Release is idempotent.
func (s *Store) Block(op string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gates[op] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gates[op] == gate {
				delete(s.gates, op)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns a copy of the call log.
func (s *Store) Calls() []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor returns the logged calls of op.
func (s *Store) CallsFor(op string) []Call {
	var out []Call
	for _, call := range s.Calls() {
		if call.Op == op {
			out = append(out, call)
		}
	}
	return out
}

// Entity returns a copy of the stored record.
func (s *Store) Entity(resource, id string) (model.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.tables[resource][id]
	if !ok {
		return nil, false
	}
	return cloneEntity(entity), true
}

// IDs lists the stored ids of resource in lexical order.
func (s *Store) IDs(resource string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tables[resource]))
	for id := range s.tables[resource] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetEntity implements dataaccess.Client.
func (s *Store) GetEntity(ctx context.Context, resource, id string) (model.Entity, error) {
	if err := s.enter(ctx, Call{Op: OpGetEntity, Resource: resource, ID: id}); err != nil {
		return nil, err
	}
	entity, ok := s.Entity(resource, id)
	if !ok {
		return nil, fmt.Errorf("memory: %s %s/%s: %w", OpGetEntity, resource, id, dataaccess.ErrNotFound)
	}
	return entity, nil
}

// GetDictionary implements dataaccess.Client.
func (s *Store) GetDictionary(ctx context.Context, source string) ([]model.Option, error) {
	if err := s.enter(ctx, Call{Op: OpGetDictionary, Source: source}); err != nil {
		return nil, err
	}
	s.mu.RLock()
	options, ok := s.dicts[source]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("memory: %s %q: %w", OpGetDictionary, source, dataaccess.ErrNotFound)
	}
	return append([]model.Option(nil), options...), nil
}

// CreateEntity implements dataaccess.Client. The payload's "id" value is
// kept when it is a non-empty string; otherwise a new id is generated.
func (s *Store) CreateEntity(ctx context.Context, resource string, payload model.State, opts dataaccess.MutateOptions) (model.Entity, error) {
	call := Call{Op: OpCreateEntity, Resource: resource, Multipart: opts.Multipart, Params: opts.Params.Clone(), Payload: payload.Clone()}
	if err := s.enter(ctx, call); err != nil {
		return nil, err
	}
	if err := checkPayload(OpCreateEntity, payload, opts); err != nil {
		return nil, err
	}

	entity := filecodec.EncodeState(payload)
	id, _ := entity["id"].(string)
	if id == "" {
		id = s.newID()
	}
	entity["id"] = id

	s.mu.Lock()
	s.table(resource)[id] = entity
	s.mu.Unlock()
	return cloneEntity(entity), nil
}

// UpdateEntity implements dataaccess.Client. The stored record is replaced by
// the payload.
func (s *Store) UpdateEntity(ctx context.Context, resource, id string, payload model.State, opts dataaccess.MutateOptions) (model.Entity, error) {
	call := Call{Op: OpUpdateEntity, Resource: resource, ID: id, Multipart: opts.Multipart, Params: opts.Params.Clone(), Payload: payload.Clone()}
	if err := s.enter(ctx, call); err != nil {
		return nil, err
	}
	if err := checkPayload(OpUpdateEntity, payload, opts); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.table(resource)
	if _, ok := table[id]; !ok {
		return nil, fmt.Errorf("memory: %s %s/%s: %w", OpUpdateEntity, resource, id, dataaccess.ErrNotFound)
	}
	entity := filecodec.EncodeState(payload)
	entity["id"] = id
	table[id] = entity
	return cloneEntity(entity), nil
}

// DeleteEntity implements dataaccess.Client.
func (s *Store) DeleteEntity(ctx context.Context, resource, id string, opts dataaccess.DeleteOptions) error {
	if err := s.enter(ctx, Call{Op: OpDeleteEntity, Resource: resource, ID: id, Params: opts.Params.Clone()}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.table(resource)
	if _, ok := table[id]; !ok {
		return fmt.Errorf("memory: %s %s/%s: %w", OpDeleteEntity, resource, id, dataaccess.ErrNotFound)
	}
	delete(table, id)
	return nil
}

// enter logs the call, then applies latency, gates, and faults.
func (s *Store) enter(ctx context.Context, call Call) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	s.calls = append(s.calls, call)
	gate := s.gates[call.Op]
	latency := s.latency
	s.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	fault := s.faults[call.Op]
	s.mu.RUnlock()
	return fault
}

// table must be called with s.mu held.
func (s *Store) table(resource string) map[string]model.Entity {
	table, ok := s.tables[resource]
	if !ok {
		table = make(map[string]model.Entity)
		s.tables[resource] = table
	}
	return table
}

func checkPayload(op string, payload model.State, opts dataaccess.MutateOptions) error {
	if opts.Multipart {
		return nil
	}
	if err := filecodec.CheckStructured(payload); err != nil {
		return fmt.Errorf("memory: %s: %w", op, err)
	}
	return nil
}

func cloneEntity(entity model.Entity) model.Entity {
	if entity == nil {
		return model.Entity{}
	}
	out, _ := model.CloneValue(entity).(model.Entity)
	return out
}
