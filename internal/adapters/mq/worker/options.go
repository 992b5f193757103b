// Package worker defines workers that turn stored punches into live
// status updates for the websocket feed.
package worker

import (
	"time"

	"github.com/jornada/fichaje/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithLocation sets the location used for day boundaries when deriving
// a user's status.
func WithLocation(loc *time.Location) Option {
	return func(w *InMemoryWorker) {
		if loc != nil {
			w.loc = loc
		}
	}
}
