package pipeline

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NextDelay returns the wait before retrying after the given attempt
// (1-based). Pure function: same inputs, same delay. Jitter is disabled so
// the retry schedule is reproducible in tests.
func NextDelay(initial time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0 // never gives up; the attempt counter does
	b.Reset()

	var d time.Duration
	for i := 0; i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}
