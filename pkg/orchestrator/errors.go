package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a save or delete is requested while another
	// mutation is in flight.
	ErrBusy = errors.New("orchestrator: a mutation is already in flight")
	// ErrReadOnly is returned for changes and saves in view mode.
	ErrReadOnly = errors.New("orchestrator: form is read only")
	// ErrNotReady is returned when the entity has not been loaded.
	ErrNotReady = errors.New("orchestrator: form is not ready")
	// ErrUnknownField is returned for properties missing from the descriptor
	// set.
	ErrUnknownField = errors.New("orchestrator: unknown field")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("orchestrator: closed")
	// ErrInvalid is returned by the renderer save callback when validation
	// fails; the messages are available through Errors.
	ErrInvalid = errors.New("orchestrator: form has validation errors")
)

// Load sources reported by LoadError.
const (
	SourceEntity     = "entity"
	SourceDictionary = "dictionary"
)

// LoadError reports a failed entity or dictionary fetch. The form stays
// usable; ID is the entity id or the dictionary source.
type LoadError struct {
	Source string
	ID     string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("orchestrator: load %s %q: %v", e.Source, e.ID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Mutation operations reported by MutationError.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// MutationError reports a failed save or delete.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("orchestrator: %s: %v", e.Op, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
