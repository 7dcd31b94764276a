package abstraction

import "errors"

var (
	// ErrNoSnapshot is returned by queries when no index run has been
	// published or persisted yet.
	ErrNoSnapshot = errors.New("no snapshot: run index first")

	// ErrUnknownFunction is returned when an identity is absent from the
	// current snapshot.
	ErrUnknownFunction = errors.New("function not found in snapshot")

	// ErrFileLimitExceeded aborts an index run whose discovered file count
	// exceeds the configured ceiling. Nothing is published.
	ErrFileLimitExceeded = errors.New("file limit exceeded")

	// ErrBuildTimeout aborts an index run that outlives its wall-clock
	// ceiling. Nothing is published.
	ErrBuildTimeout = errors.New("index run exceeded time limit")
)
