package orchestrator

import (
	"context"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/render"
)

// Snapshot is an immutable copy of the orchestrator state, as handed to
// listeners and renderers.
type Snapshot struct {
	Resource         string
	Mode             Mode
	Status           Status
	ID               string
	Fields           []model.Field
	State            model.State
	Errors           map[string]string
	FormErrors       []string
	LoadError        error
	DictionaryErrors map[string]error
	Hidden           map[string]bool
	Generation       uint64
	// Sequence increases with every snapshot taken; listeners never see
	// a lower Sequence after a higher one.
	Sequence uint64
}

// Loading reports whether the entity is still being fetched.
func (s Snapshot) Loading() bool { return s.Status == StatusLoading }

// Saving reports whether a save or delete is running.
func (s Snapshot) Saving() bool {
	return s.Status == StatusSaving || s.Status == StatusDeleting
}

// View converts the snapshot into the renderer contract.
func (s Snapshot) View() render.View {
	view := render.View{
		Resource:   s.Resource,
		Mode:       string(s.Mode),
		Status:     string(s.Status),
		ID:         s.ID,
		Fields:     s.Fields,
		Values:     s.State.Values,
		Files:      s.State.Files,
		Errors:     s.Errors,
		FormErrors: s.FormErrors,
		Loading:    s.Loading(),
		Saving:     s.Saving(),
		ReadOnly:   s.Mode == ModeView,
		Hidden:     s.Hidden,
	}
	if s.LoadError != nil {
		view.LoadError = s.LoadError.Error()
	}
	return view
}

// Snapshot returns the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.snapshotLocked()
}

// View is shorthand for Snapshot().View().
func (o *Orchestrator) View() render.View {
	return o.Snapshot().View()
}

// Callbacks binds the renderer callbacks to this orchestrator. OnSave
// validates before saving and returns ErrInvalid when the form has errors.
// View mode leaves OnChange, OnFile, and OnSave nil.
func (o *Orchestrator) Callbacks() render.Callbacks {
	callbacks := render.Callbacks{
		OnDelete: func(ctx context.Context, overrides dataaccess.Params) error {
			return o.Delete(ctx, "", overrides)
		},
		OnCancel: o.Cancel,
		Visible:  o.Visible,
	}
	if o.Mode() == ModeView {
		return callbacks
	}
	callbacks.OnChange = o.SetValue
	callbacks.OnFile = o.SetFile
	callbacks.OnSave = func(ctx context.Context, overrides dataaccess.Params) (model.Entity, error) {
		if !o.Validate(nil) {
			return nil, ErrInvalid
		}
		return o.Save(ctx, overrides)
	}
	return callbacks
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Resource:   o.resource,
		Mode:       o.mode,
		Status:     o.status,
		ID:         o.id,
		Fields:     model.CloneFields(o.fields),
		State:      o.state.Clone(),
		Errors:     o.marks.Clone(),
		FormErrors: append([]string(nil), o.formErrors...),
		Hidden:     o.hiddenLocked(),
		Generation: o.generation,
		Sequence:   o.sequence.Add(1),
	}
	if err := o.loadErrLocked(); err != nil {
		snap.LoadError = err
	}
	if len(o.dictErrs) > 0 {
		snap.DictionaryErrors = make(map[string]error, len(o.dictErrs))
		for source, err := range o.dictErrs {
			snap.DictionaryErrors[source] = err
		}
	}
	return snap
}
