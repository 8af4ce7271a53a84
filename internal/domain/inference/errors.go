package inference

import "errors"

// ErrUnavailable indicates a transient backend failure (network, 5xx, quota).
// The scheduler retries these with backoff.
var ErrUnavailable = errors.New("inference backend unavailable")

// ErrModel indicates the model deterministically rejected the input.
// Never retried.
var ErrModel = errors.New("model rejected input")
