package driven

import "errors"

// Sentinel errors returned by store implementations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a record with the same unique key already exists.
	ErrAlreadyExists = errors.New("already exists")
)
