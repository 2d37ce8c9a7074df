package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// SampleFunc reads one observation of some multi-party state.
type SampleFunc[S any] func(ctx context.Context) (S, error)

// errUnsatisfied marks a round whose sample did not satisfy the predicate.
var errUnsatisfied = errors.New("predicate not satisfied")

// Until samples state immediately and then once per interval until predicate holds for a sample or
// deadline has elapsed since the call. It returns:
//   - the satisfying sample and nil, as soon as the predicate holds
//   - the last sample and a TimeoutError, if the deadline elapsed first
//   - the last sample and a CancelledError, if ctx was cancelled first
//   - the last good sample and the wrapped sample error, if sampling failed; failed samples are never retried
//
// Cancellation is observed while waiting between samples, so the loop exits at most one sample
// duration after ctx is done.
func Until[S any](ctx context.Context, sample SampleFunc[S], predicate func(S) bool, interval time.Duration, deadline time.Duration) (S, error) {
	var last S
	if interval <= 0 {
		return last, fmt.Errorf("poll interval must be positive, got %v", interval)
	}
	if deadline < 0 {
		return last, fmt.Errorf("poll deadline must not be negative, got %v", deadline)
	}

	start := time.Now()
	if err := ctx.Err(); err != nil {
		return last, NewCancelledError(0, 0, err)
	}
	backoff := retry.WithMaxDuration(deadline, retry.NewConstant(interval))

	rounds := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		rounds++
		s, err := sample(ctx)
		if err != nil {
			return err
		}
		last = s
		if predicate(s) {
			return nil
		}
		return retry.RetryableError(errUnsatisfied)
	})

	switch {
	case err == nil:
		return last, nil
	case ctx.Err() != nil:
		return last, NewCancelledError(rounds, time.Since(start), ctx.Err())
	case errors.Is(err, errUnsatisfied):
		return last, NewTimeoutError(rounds, time.Since(start), deadline)
	default:
		return last, fmt.Errorf("sampling failed in round %d: %w", rounds, err)
	}
}

// UntilTrue polls check until it reports true. It is Until over a boolean observation.
func UntilTrue(ctx context.Context, check func(ctx context.Context) (bool, error), interval time.Duration, deadline time.Duration) error {
	_, err := Until[bool](ctx, check, func(ok bool) bool { return ok }, interval, deadline)
	return err
}
