package poller

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError indicates that the predicate never held within the deadline.
type TimeoutError struct {
	Rounds   int
	Elapsed  time.Duration
	Deadline time.Duration
}

func NewTimeoutError(rounds int, elapsed time.Duration, deadline time.Duration) error {
	return TimeoutError{Rounds: rounds, Elapsed: elapsed, Deadline: deadline}
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("condition not met after %d rounds in %v (deadline %v)", e.Rounds, e.Elapsed.Round(time.Millisecond), e.Deadline)
}

// IsTimeoutError returns whether err is a TimeoutError
func IsTimeoutError(err error) bool {
	var e TimeoutError
	return errors.As(err, &e)
}

// CancelledError indicates that the caller cancelled the wait before the predicate held or the
// deadline elapsed.
type CancelledError struct {
	Rounds  int
	Elapsed time.Duration
	err     error
}

func NewCancelledError(rounds int, elapsed time.Duration, err error) error {
	return CancelledError{Rounds: rounds, Elapsed: elapsed, err: err}
}

func (e CancelledError) Error() string {
	return fmt.Sprintf("polling cancelled after %d rounds in %v: %s", e.Rounds, e.Elapsed.Round(time.Millisecond), e.err.Error())
}

func (e CancelledError) Unwrap() error { return e.err }

// IsCancelledError returns whether err is a CancelledError
func IsCancelledError(err error) bool {
	var e CancelledError
	return errors.As(err, &e)
}
