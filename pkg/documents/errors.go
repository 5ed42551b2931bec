package documents

import "errors"

// Sentinel errors surfaced by Service's operations. Callers should compare
// against these with errors.Is rather than inspecting message text.
var (
	// ErrAlreadyExists is returned when a document is already registered at
	// the given path.
	ErrAlreadyExists = errors.New("documents: document already exists at path")

	// ErrNotExists is returned when an operation expects an existing
	// metadata row and finds none.
	ErrNotExists = errors.New("documents: document does not exist")

	// ErrNoWatchFound is returned by AddDocument when no registered watch's
	// root contains the given path.
	ErrNoWatchFound = errors.New("documents: no watch contains path")
)
