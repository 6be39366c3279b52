package orchestrator

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formbind/pkg/dataaccess"
	"github.com/goliatone/go-formbind/pkg/dictionary"
	"github.com/goliatone/go-formbind/pkg/model"
	"github.com/goliatone/go-formbind/pkg/validation"
	"github.com/goliatone/go-formbind/pkg/visibility"
)

// Observer receives lifecycle measurements. Implementations must be safe for
// concurrent use; see pkg/metrics for a Prometheus implementation.
type Observer interface {
	ObserveLoad(resource string, err error, elapsed time.Duration)
	ObserveDictionary(source string, cached bool, err error, elapsed time.Duration)
	ObserveMutation(resource, op string, err error, elapsed time.Duration)
	ObserveValidation(resource string, failures int)
	ObserveTransition(resource string, from, to Status)
}

type nopObserver struct{}

func (nopObserver) ObserveLoad(string, error, time.Duration)             {}
func (nopObserver) ObserveDictionary(string, bool, error, time.Duration) {}
func (nopObserver) ObserveMutation(string, string, error, time.Duration) {}
func (nopObserver) ObserveValidation(string, int)                        {}
func (nopObserver) ObserveTransition(string, Status, Status)             {}

// Listener is notified with a fresh snapshot after every state change. It
// may run on a fetch goroutine. Deliveries are serialised, and a snapshot
// superseded by one already delivered is skipped.
type Listener func(Snapshot)

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBaseParams sets the params merged under every save and delete.
func WithBaseParams(params dataaccess.Params) Option {
	return func(o *Orchestrator) {
		o.baseParams = params.Clone()
	}
}

// WithObserver installs a lifecycle observer.
func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithListener registers a snapshot listener. Multiple listeners run in
// registration order.
func WithListener(listener Listener) Option {
	return func(o *Orchestrator) {
		if listener != nil {
			o.listeners = append(o.listeners, listener)
		}
	}
}

// WithAfterLoad runs fn with the decoded state after a successful fetch.
func WithAfterLoad(fn func(model.State)) Option {
	return func(o *Orchestrator) {
		o.afterLoad = fn
	}
}

// WithAfterSave runs fn with the server response after a successful save.
func WithAfterSave(fn func(model.Entity)) Option {
	return func(o *Orchestrator) {
		o.afterSave = fn
	}
}

// WithAfterDelete runs fn with the deleted id.
func WithAfterDelete(fn func(id string)) Option {
	return func(o *Orchestrator) {
		o.afterDelete = fn
	}
}

// WithValidator replaces the default validation engine.
func WithValidator(validator validation.Validator) Option {
	return func(o *Orchestrator) {
		if validator != nil {
			o.validator = validator
		}
	}
}

// WithVisibility replaces the evaluator for VisibleWhen rules. extras are
// exposed to rules under the "extras." prefix.
func WithVisibility(evaluator visibility.Evaluator, extras map[string]any) Option {
	return func(o *Orchestrator) {
		if evaluator != nil {
			o.visibility = evaluator
		}
		if extras != nil {
			o.extras = make(map[string]any, len(extras))
			for k, v := range extras {
				o.extras[k] = v
			}
		}
	}
}

// WithResolver replaces the dictionary resolver. The resolver cache becomes
// the orchestrator's dictionary cache.
func WithResolver(resolver *dictionary.Resolver) Option {
	return func(o *Orchestrator) {
		if resolver != nil {
			o.resolver = resolver
		}
	}
}
