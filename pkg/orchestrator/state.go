package orchestrator

import (
	"fmt"

	"github.com/goliatone/go-formbind/pkg/filecodec"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/visibility"
)

// Values returns a deep copy of the current entity state.
func (o *Orchestrator) Values() model.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.Clone()
}

// SetValue records a field change. FileValue arguments are routed to
// SetFile; nil on a file field clears it. The property's highlight mark is
// cleared.
func (o *Orchestrator) SetValue(property string, value any) error {
	switch typed := value.(type) {
	case model.FileValue:
		return o.SetFile(property, typed)
	case *model.FileValue:
		if typed != nil {
			return o.SetFile(property, *typed)
		}
	}
	return o.change(property, func(field model.Field, state model.State) (model.State, error) {
		if field.Type == model.FieldTypeFile && value == nil {
			return state.Without(property), nil
		}
		return state.With(property, value), nil
	})
}

// SetFile binds file to a file-typed property.
func (o *Orchestrator) SetFile(property string, file model.FileValue) error {
	return o.change(property, func(field model.Field, state model.State) (model.State, error) {
		if field.Type != model.FieldTypeFile {
			return state, fmt.Errorf("orchestrator: %q is not a file field", property)
		}
		return state.WithFile(property, file), nil
	})
}

// ClearFile removes the file bound to property.
func (o *Orchestrator) ClearFile(property string) error {
	return o.change(property, func(_ model.Field, state model.State) (model.State, error) {
		return state.Without(property), nil
	})
}

func (o *Orchestrator) change(property string, apply func(model.Field, model.State) (model.State, error)) error {
	if o.closed.Load() {
		return ErrClosed
	}

	o.mu.Lock()
	switch {
	case o.mode == ModeView:
		o.mu.Unlock()
		return ErrReadOnly
	case !o.loaded || o.status == StatusLoading || o.status == StatusDone:
		o.mu.Unlock()
		return ErrNotReady
	}
	idx, ok := o.index[property]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, property)
	}
	next, err := apply(o.fields[idx], o.state)
	if err != nil {
		o.mu.Unlock()
		return err
	}
	o.state = next
	o.marks.Clear(property)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return nil
}

// Validate runs the validator over the current state and replaces the
// highlight marks with its outcome. When invalid, onErrors receives the
// ordered failures. State is never modified.
func (o *Orchestrator) Validate(onErrors func([]model.FieldError)) bool {
	o.mu.Lock()
	result := o.validator.Validate(visibility.Visible(o.fields, o.hiddenLocked()), o.state)
	o.marks.Apply(result)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.observer.ObserveValidation(o.resource, len(result.Errors))
	o.notify(snap)

	if !result.Valid() && onErrors != nil {
		onErrors(append([]model.FieldError(nil), result.Errors...))
	}
	return result.Valid()
}

// Errors returns the current highlight marks by property.
func (o *Orchestrator) Errors() map[string]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.marks.Clone()
}

// AddError marks property with message, for checks performed outside the
// validator.
func (o *Orchestrator) AddError(property, message string) error {
	if o.closed.Load() {
		return ErrClosed
	}
	o.mu.Lock()
	if _, ok := o.index[property]; !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownField, property)
	}
	o.marks.Set(property, message)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.notify(snap)
	return nil
}

// SetEntity replaces the state with entity, decoding file values. A pending
// entity fetch is superseded.
func (o *Orchestrator) SetEntity(entity model.Entity) error {
	if o.closed.Load() {
		return ErrClosed
	}
	state, err := filecodec.DecodeEntity(entity)
	if err != nil {
		return fmt.Errorf("orchestrator: set entity: %w", err)
	}

	o.mu.Lock()
	o.entitySeq++
	o.state = state
	o.loaded = true
	o.marks = nil
	o.formErrors = nil
	o.loadErr = nil
	if o.id == "" {
		o.id = entityID(entity)
	}
	from := o.status
	if o.status == StatusLoading || o.status == StatusError {
		o.status = StatusReady
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.transitioned(from, snap.Status)
	o.notify(snap)
	return nil
}

// Status returns the lifecycle state.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Mode returns the resolved mode of the current target.
func (o *Orchestrator) Mode() Mode {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.mode
}

// ID returns the id of the current target, if known.
func (o *Orchestrator) ID() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

// Fields returns a copy of the descriptors, with resolved dictionary options
// patched in.
func (o *Orchestrator) Fields() []model.Field {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return model.CloneFields(o.fields)
}

// LoadErr returns the entity load failure, or else the first dictionary
// failure in descriptor order. Nil when everything loaded.
func (o *Orchestrator) LoadErr() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if err := o.loadErrLocked(); err != nil {
		return err
	}
	return nil
}

// DictionaryErrors returns the failed dictionary sources of the current
// target.
func (o *Orchestrator) DictionaryErrors() map[string]error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if len(o.dictErrs) == 0 {
		return nil
	}
	out := make(map[string]error, len(o.dictErrs))
	for source, err := range o.dictErrs {
		out[source] = err
	}
	return out
}

func (o *Orchestrator) loadErrLocked() *LoadError {
	if o.loadErr != nil {
		return o.loadErr
	}
	for _, field := range o.fields {
		if err, ok := o.dictErrs[field.RemoteSource]; ok && field.RemoteSource != "" {
			return err
		}
	}
	return nil
}

// Visible reports whether property's visibility rule holds for the current
// values. Unknown properties report false.
func (o *Orchestrator) Visible(property string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if _, ok := o.index[property]; !ok {
		return false
	}
	return !o.hiddenLocked()[property]
}

func (o *Orchestrator) hiddenLocked() map[string]bool {
	ctx := visibility.Context{Values: o.state.Values, Extras: o.extras}
	hidden, err := visibility.Hidden(o.fields, ctx, o.visibility)
	if err != nil {
		o.logger.WithError(err).Debug("visibility rule failed")
	}
	return hidden
}
