package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
)

// Save creates or updates the entity depending on the mode. overrides are
// merged over the base params, overrides winning. Multipart encoding is
// requested whenever the descriptor set declares a file field. Save does not
// validate; call Validate first or use the renderer callbacks.
//
// Only one save or delete runs at a time; a concurrent call returns ErrBusy.
// Failures come back as *MutationError and leave the form usable.
func (o *Orchestrator) Save(ctx context.Context, overrides dataaccess.Params) (model.Entity, error) {
	if o.closed.Load() {
		return nil, ErrClosed
	}

	o.mu.RLock()
	mode, status, loaded, id, gen := o.mode, o.status, o.loaded, o.id, o.generation
	payload := o.state.Clone()
	o.mu.RUnlock()

	switch {
	case mode == ModeView:
		return nil, ErrReadOnly
	case !loaded || status == StatusLoading || status == StatusDone:
		return nil, ErrNotReady
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.inFlight.Store(false)

	op := OpUpdate
	if mode == ModeCreate {
		op = OpCreate
	}
	opts := dataaccess.MutateOptions{
		Multipart: o.hasFiles,
		Params:    o.baseParams.Merge(overrides),
	}
	log := o.logger.WithFields(logrus.Fields{"id": id, "op": op, "multipart": opts.Multipart})

	o.setStatus(gen, StatusSaving)
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	started := time.Now()
	result, err := guard(func() (model.Entity, error) {
		if op == OpCreate {
			return o.client.CreateEntity(callCtx, o.resource, payload, opts)
		}
		return o.client.UpdateEntity(callCtx, o.resource, id, payload, opts)
	})
	o.observer.ObserveMutation(o.resource, op, err, time.Since(started))

	if err != nil {
		log.WithError(err).Warn("save failed")
		o.failMutation(gen, err)
		return nil, &MutationError{Op: op, Err: err}
	}
	log.Debug("saved")
	o.setStatus(gen, StatusReady)

	if result == nil {
		result = model.Entity{}
	}
	if o.afterSave != nil {
		o.afterSave(model.CloneValue(result).(model.Entity))
	}
	return result, nil
}

// Delete removes the entity id, defaulting to the current target id. It
// shares the in-flight flag with Save. Success moves the form to Done.
func (o *Orchestrator) Delete(ctx context.Context, id string, overrides dataaccess.Params) error {
	if o.closed.Load() {
		return ErrClosed
	}

	o.mu.RLock()
	status, current, gen := o.status, o.id, o.generation
	o.mu.RUnlock()

	id = strings.TrimSpace(id)
	if id == "" {
		id = current
	}
	if id == "" {
		return errors.New("orchestrator: delete: id is required")
	}
	if status == StatusLoading || status == StatusDone {
		return ErrNotReady
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer o.inFlight.Store(false)

	opts := dataaccess.DeleteOptions{Params: o.baseParams.Merge(overrides)}
	log := o.logger.WithFields(logrus.Fields{"id": id, "op": OpDelete})

	o.setStatus(gen, StatusDeleting)
	callCtx, cancel := o.callContext(ctx)
	defer cancel()

	started := time.Now()
	_, err := guard(func() (model.Entity, error) {
		return nil, o.client.DeleteEntity(callCtx, o.resource, id, opts)
	})
	o.observer.ObserveMutation(o.resource, OpDelete, err, time.Since(started))

	if err != nil {
		log.WithError(err).Warn("delete failed")
		o.failMutation(gen, err)
		return &MutationError{Op: OpDelete, Err: err}
	}
	log.Debug("deleted")
	o.setStatus(gen, StatusDone)

	if o.afterDelete != nil {
		o.afterDelete(id)
	}
	return nil
}

// IsBusy reports whether a save or delete is in flight.
func (o *Orchestrator) IsBusy() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) setStatus(gen uint64, status Status) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	from := o.status
	o.status = status
	if status == StatusSaving || status == StatusDeleting {
		o.formErrors = nil
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.transitioned(from, status)
	o.notify(snap)
}

// failMutation moves to Error and turns server field errors into marks.
func (o *Orchestrator) failMutation(gen uint64, err error) {
	o.mu.Lock()
	if gen != o.generation {
		o.mu.Unlock()
		return
	}
	from := o.status
	o.status = StatusError

	var status *dataaccess.StatusError
	if errors.As(err, &status) && status.HasFieldErrors() {
		mapping := validation.MapServerErrors(o.fields, status.FieldErrors)
		for _, fe := range mapping.FieldErrors(o.fields) {
			if !o.marks.Has(fe.Property) {
				o.marks.Set(fe.Property, fe.Message)
			}
		}
		o.formErrors = append([]string(nil), mapping.Form...)
	}
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.transitioned(from, StatusError)
	o.notify(snap)
}

// callContext derives a call context that also ends when the orchestrator
// closes.
func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithCancel(ctx)
	unlink := context.AfterFunc(o.lifetime, cancel)
	return callCtx, func() {
		unlink()
		cancel()
	}
}

func guard(call func() (model.Entity, error)) (result model.Entity, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("orchestrator: data-access call panicked: %v", recovered)
		}
	}()
	return call()
}
