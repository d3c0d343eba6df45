// Package retry implements the fixed backoff ladder required by spec
// §4.B for atomic_increment and by §4.D for the remote adapter's
// conditional-write retry: 50, 100, 200, 400, 800 ms, up to five
// attempts. The ladder is literal, not a general exponential-backoff
// policy, so it is implemented directly rather than configuring a
// third-party backoff library to emulate one fixed sequence.
package retry

import (
	"context"
	"time"
)

// Ladder is the spec-mandated backoff sequence.
var Ladder = []time.Duration{
	50 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
	400 * time.Millisecond,
	800 * time.Millisecond,
}

// MaxAttempts is the number of tries the ladder allows (one initial
// attempt plus up to len(Ladder) retries would overshoot; per spec
// "up to five attempts" total).
const MaxAttempts = 5

// Do calls fn up to MaxAttempts times. If fn returns a nil error, Do
// returns immediately. If shouldRetry(err) is false, Do returns that
// error immediately without further attempts. Otherwise Do sleeps for
// the next rung of Ladder (or the last rung, if attempts exceed its
// length) and tries again. The final attempt's error is returned if
// all attempts are exhausted.
func Do(ctx context.Context, shouldRetry func(error) bool, fn func(attempt int) error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		if attempt == MaxAttempts-1 {
			break
		}
		delay := Ladder[attempt]
		if attempt >= len(Ladder) {
			delay = Ladder[len(Ladder)-1]
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}
