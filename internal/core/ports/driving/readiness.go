package driving

import "context"

// ReadinessProbe reports the state of background initialisation.
type ReadinessProbe interface {
	// Ready reports whether initialisation finished successfully.
	Ready() bool

	// Err returns the initialisation failure, ErrNotReady while running,
	// or nil once ready.
	Err() error

	// Wait blocks until initialisation finishes or ctx is done.
	Wait(ctx context.Context) error
}
