package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/dictionary"
	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
	"github.com/goliatone/go-formbind/pkg/visibility"
	"github.com/goliatone/go-formbind/pkg/visibility/expr"
)

// Status is the lifecycle state of an Orchestrator.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusReady    Status = "ready"
	StatusSaving   Status = "saving"
	StatusDeleting Status = "deleting"
	StatusDone     Status = "done"
	StatusError    Status = "error"
)

// Mode selects how the target entity is obtained and saved.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
	// ModeAuto resolves to ModeCreate when neither ID nor Entity is given,
	// ModeEdit otherwise.
	ModeAuto Mode = "auto"
)

// Target identifies what the form edits.
type Target struct {
	Mode   Mode
	ID     string
	Entity model.Entity
}

// Orchestrator is the stateful form controller. All methods are safe for
// concurrent use.
type Orchestrator struct {
	resource   string
	client     dataaccess.Client
	declared   []model.Field
	index      map[string]int
	hasFiles   bool
	initErr    error
	logger     logrus.FieldLogger
	observer   Observer
	listeners  []Listener
	baseParams dataaccess.Params
	validator  validation.Validator
	resolver   *dictionary.Resolver
	visibility visibility.Evaluator
	extras     map[string]any

	afterLoad   func(model.State)
	afterSave   func(model.Entity)
	afterDelete func(string)

	lifetime context.Context
	stop     context.CancelFunc
	closed   atomic.Bool
	inFlight atomic.Bool
	workers  sync.WaitGroup

	mu           sync.RWMutex
	fields       []model.Field
	state        model.State
	marks        validation.Marks
	formErrors   []string
	status       Status
	mode         Mode
	id           string
	loaded       bool
	loadErr      *LoadError
	dictErrs     map[string]*LoadError
	generation   uint64
	entitySeq    uint64
	cancelTarget context.CancelFunc
	settled      chan struct{}

	// sequence orders snapshots; it is bumped while mu is held.
	sequence  atomic.Uint64
	notifyMu  sync.Mutex
	pending   []Snapshot
	draining  bool
	delivered uint64
}

// New builds an orchestrator for resource over a copy of fields. Missing
// arguments are reported by Initialize.
func New(resource string, fields []model.Field, client dataaccess.Client, opts ...Option) *Orchestrator {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	o := &Orchestrator{
		resource:   strings.TrimSpace(resource),
		client:     client,
		declared:   model.CloneFields(fields),
		index:      make(map[string]int, len(fields)),
		hasFiles:   model.HasFileField(fields),
		logger:     discard,
		observer:   nopObserver{},
		validator:  validation.Engine{},
		visibility: expr.New(),
		status:     StatusLoading,
		state:      model.NewState(),
	}
	for i, field := range o.declared {
		o.index[field.Property] = i
	}
	o.fields = model.CloneFields(o.declared)

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(o)
	}

	if o.resolver == nil {
		var fetcher dictionary.Fetcher
		if client != nil {
			fetcher = client
		}
		o.resolver = dictionary.NewResolver(fetcher, dictionary.WithLogger(o.logger))
	}
	o.logger = o.logger.WithField("resource", o.resource)

	switch {
	case o.resource == "":
		o.initErr = errors.New("orchestrator: resource is required")
	case client == nil:
		o.initErr = errors.New("orchestrator: data-access client is required")
	}

	o.lifetime, o.stop = context.WithCancel(context.Background())
	return o
}

// Initialize binds the orchestrator to target. Supplied entities and create
// mode become Ready immediately; otherwise the entity is fetched on a
// goroutine. Dictionary resolution starts in parallel and never delays
// readiness. Work still running for a previous target is cancelled and its
// results are discarded. Cancelling ctx cancels this target's fetches.
func (o *Orchestrator) Initialize(ctx context.Context, target Target) error {
	if o.closed.Load() {
		return ErrClosed
	}
	if o.initErr != nil {
		return o.initErr
	}
	if ctx == nil {
		ctx = context.Background()
	}

	mode, err := resolveMode(target)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(target.ID)
	var (
		seeded    model.State
		hasSeeded bool
	)
	switch {
	case target.Entity != nil:
		state, err := filecodec.DecodeEntity(target.Entity)
		if err != nil {
			return &LoadError{Source: SourceEntity, ID: id, Err: err}
		}
		seeded, hasSeeded = state, true
		if id == "" {
			id = entityID(target.Entity)
		}
	case mode == ModeCreate:
		seeded, hasSeeded = o.defaults(), true
	}

	targetCtx, cancel := context.WithCancel(o.lifetime)
	unlink := context.AfterFunc(ctx, cancel)

	o.mu.Lock()
	if o.closed.Load() {
		o.mu.Unlock()
		unlink()
		cancel()
		return ErrClosed
	}
	if o.cancelTarget != nil {
		o.cancelTarget()
	}
	o.generation++
	gen := o.generation
	o.entitySeq++
	seq := o.entitySeq
	o.cancelTarget = func() {
		unlink()
		cancel()
	}
	o.fields = model.CloneFields(o.declared)
	o.marks = nil
	o.formErrors = nil
	o.loadErr = nil
	o.dictErrs = nil
	o.mode = mode
	o.id = id
	from := o.status
	if hasSeeded {
		o.state = seeded
		o.loaded = true
		o.status = StatusReady
	} else {
		o.state = model.NewState()
		o.loaded = false
		o.status = StatusLoading
	}
	settled := make(chan struct{})
	o.settled = settled
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.WithFields(logrus.Fields{"id": id, "mode": mode, "op": "initialize"}).Debug("form initialized")
	o.transitioned(from, snap.Status)
	o.notify(snap)

	var pending sync.WaitGroup
	if !hasSeeded {
		pending.Add(1)
		if !o.spawn(func() {
			defer pending.Done()
			o.loadEntity(targetCtx, gen, seq, id)
		}) {
			pending.Done()
		}
	}
	if sources := dictionary.Sources(o.declared); len(sources) > 0 {
		pending.Add(1)
		if !o.spawn(func() {
			defer pending.Done()
			o.resolveDictionaries(targetCtx, gen, sources)
		}) {
			pending.Done()
		}
	}
	if !o.spawn(func() {
		pending.Wait()
		close(settled)
	}) {
		pending.Wait()
		close(settled)
	}
	return nil
}

// Wait blocks until the entity fetch and dictionary fetches of the current
// target have completed, or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.RLock()
	settled := o.settled
	o.mu.RUnlock()
	if settled == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel aborts outstanding fetches of the current target. The form stays
// open; an interrupted entity fetch surfaces as a LoadError.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelTarget != nil {
		o.cancelTarget()
	}
}

// Close cancels all outstanding work and waits for fetch goroutines to exit.
// It does not wait for a caller blocked in Save or Delete; those calls are
// cancelled and return. Close is idempotent.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed.Load() {
		o.mu.Unlock()
		return nil
	}
	o.closed.Store(true)
	if o.cancelTarget != nil {
		o.cancelTarget()
	}
	o.mu.Unlock()

	o.stop()
	o.workers.Wait()
	o.logger.WithField("op", "close").Debug("form closed")
	return nil
}

// InvalidateDictionaries drops cached option lists so the next Initialize
// fetches them again. With no arguments the whole cache is dropped.
func (o *Orchestrator) InvalidateDictionaries(sources ...string) {
	o.resolver.Cache().Invalidate(sources...)
}

func (o *Orchestrator) loadEntity(ctx context.Context, gen, seq uint64, id string) {
	log := o.logger.WithFields(logrus.Fields{"id": id, "op": "load"})
	started := time.Now()
	state, err := o.fetchEntity(ctx, id)
	o.observer.ObserveLoad(o.resource, err, time.Since(started))

	o.mu.Lock()
	if gen != o.generation || seq != o.entitySeq || o.closed.Load() {
		o.mu.Unlock()
		log.Debug("discarding stale entity load")
		return
	}
	from := o.status
	if err != nil {
		o.loadErr = &LoadError{Source: SourceEntity, ID: id, Err: err}
		o.status = StatusError
	} else {
		o.state = state
		o.loaded = true
		o.status = StatusReady
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if err != nil {
		log.WithError(err).Warn("entity load failed")
	} else {
		log.Debug("entity loaded")
	}
	o.transitioned(from, snap.Status)
	o.notify(snap)
	if err == nil && o.afterLoad != nil {
		o.afterLoad(state.Clone())
	}
}

func (o *Orchestrator) fetchEntity(ctx context.Context, id string) (state model.State, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("orchestrator: get entity panicked: %v", recovered)
		}
	}()
	entity, err := o.client.GetEntity(ctx, o.resource, id)
	if err != nil {
		return model.State{}, err
	}
	return filecodec.DecodeEntity(entity)
}

func (o *Orchestrator) resolveDictionaries(ctx context.Context, gen uint64, sources []string) {
	o.resolver.Resolve(ctx, sources, func(result dictionary.Result) {
		o.observer.ObserveDictionary(result.Source, result.Cached, result.Err, result.Elapsed)
		o.applyDictionary(gen, result)
	})
}

func (o *Orchestrator) applyDictionary(gen uint64, result dictionary.Result) {
	log := o.logger.WithFields(logrus.Fields{"source": result.Source, "op": "dictionary"})

	o.mu.Lock()
	if gen != o.generation || o.closed.Load() {
		o.mu.Unlock()
		log.Debug("discarding stale dictionary")
		return
	}
	if result.Err != nil {
		if o.dictErrs == nil {
			o.dictErrs = make(map[string]*LoadError)
		}
		o.dictErrs[result.Source] = &LoadError{Source: SourceDictionary, ID: result.Source, Err: result.Err}
	} else {
		dictionary.Patch(o.fields, result.Source, result.Options)
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	if result.Err != nil {
		log.WithError(result.Err).Warn("dictionary unavailable")
	}
	o.notify(snap)
}

// spawn runs fn on a tracked goroutine unless the orchestrator is closed.
func (o *Orchestrator) spawn(fn func()) bool {
	o.mu.Lock()
	if o.closed.Load() {
		o.mu.Unlock()
		return false
	}
	o.workers.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.workers.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				o.logger.WithField("panic", recovered).Error("orchestrator worker panicked")
			}
		}()
		fn()
	}()
	return true
}

func (o *Orchestrator) defaults() model.State {
	state := model.NewState()
	for _, field := range o.declared {
		if !field.HasDefault {
			continue
		}
		if file, ok := field.Default.(model.FileValue); ok {
			file.Data = append([]byte(nil), file.Data...)
			state.Files[field.Property] = file
			continue
		}
		state.Values[field.Property] = model.CloneValue(field.Default)
	}
	return state
}

func (o *Orchestrator) transitioned(from, to Status) {
	if from == to {
		return
	}
	o.observer.ObserveTransition(o.resource, from, to)
	o.logger.WithFields(logrus.Fields{"from": from, "to": to}).Debug("status changed")
}

// notify queues snap for delivery. One goroutine drains the queue at a time,
// so listeners never run concurrently and a listener may call back into the
// orchestrator. Snapshots older than the last one delivered are dropped.
func (o *Orchestrator) notify(snap Snapshot) {
	if len(o.listeners) == 0 {
		return
	}
	o.notifyMu.Lock()
	o.pending = append(o.pending, snap)
	if o.draining {
		o.notifyMu.Unlock()
		return
	}
	o.draining = true
	for len(o.pending) > 0 {
		next := o.pending[0]
		o.pending = o.pending[1:]
		if next.Sequence <= o.delivered {
			continue
		}
		o.delivered = next.Sequence
		o.notifyMu.Unlock()
		o.deliver(next)
		o.notifyMu.Lock()
	}
	o.pending = nil
	o.draining = false
	o.notifyMu.Unlock()
}

func (o *Orchestrator) deliver(snap Snapshot) {
	for _, listener := range o.listeners {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					o.logger.WithField("panic", recovered).Error("listener panicked")
				}
			}()
			listener(snap)
		}()
	}
}

func resolveMode(target Target) (Mode, error) {
	mode := target.Mode
	if mode == "" {
		mode = ModeAuto
	}
	hasID := strings.TrimSpace(target.ID) != ""
	switch mode {
	case ModeAuto:
		if !hasID && target.Entity == nil {
			return ModeCreate, nil
		}
		return ModeEdit, nil
	case ModeCreate:
		return ModeCreate, nil
	case ModeEdit, ModeView:
		if !hasID && target.Entity == nil {
			return "", fmt.Errorf("orchestrator: %s mode requires an id or an entity", mode)
		}
		return mode, nil
	default:
		return "", fmt.Errorf("orchestrator: unknown mode %q", mode)
	}
}

func entityID(entity model.Entity) string {
	switch id := entity["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	case fmt.Stringer:
		return id.String()
	default:
		return ""
	}
}
