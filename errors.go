package gosquit

import "errors"

var (
	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("gosquit: invalid configuration")

	// ErrInvalidRequest is returned for a generation request the engine
	// cannot run, such as a negative per-shape target.
	ErrInvalidRequest = errors.New("gosquit: invalid request")

	// ErrUnknownShape is returned for a query shape the engine does not know.
	ErrUnknownShape = errors.New("gosquit: unknown query shape")

	// ErrStoreDisabled is returned by store-backed operations when the
	// engine runs with SkipStore.
	ErrStoreDisabled = errors.New("gosquit: store disabled")

	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("gosquit: engine is closed")
)
