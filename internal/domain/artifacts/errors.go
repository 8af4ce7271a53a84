package artifacts

import "errors"

// Upload validation failures. These reject the request before any
// artifact row or blob exists.
var (
	ErrUnsupportedFormat  = errors.New("unsupported audio format")
	ErrUnsupportedSpecies = errors.New("unsupported species")
	ErrFileTooLarge       = errors.New("audio file exceeds maximum size")
)

// Blob store failures. ErrStorageUnavailable is distinct from ErrNotFound so
// callers can tell an outage from a missing key.
var (
	ErrNotFound           = errors.New("artifact not found")
	ErrStorageUnavailable = errors.New("artifact storage unavailable")
)
