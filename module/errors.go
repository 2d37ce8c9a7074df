package module

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
)

// TransportError indicates that an endpoint could not be reached, did not answer in time, or
// returned a response that could not be decoded. Callers may retry the whole operation. A call
// abandoned because the caller's context was cancelled is never a TransportError; it returns an
// error wrapping ctx.Err().
type TransportError struct {
	Endpoint string
	err      error
}

func NewTransportError(endpoint string, err error) error {
	return TransportError{Endpoint: endpoint, err: err}
}

func NewTransportErrorf(endpoint string, msg string, args ...interface{}) error {
	return TransportError{Endpoint: endpoint, err: fmt.Errorf(msg, args...)}
}

func (e TransportError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("transport error: %s", e.err.Error())
	}
	return fmt.Sprintf("transport error (%s): %s", e.Endpoint, e.err.Error())
}

func (e TransportError) Unwrap() error { return e.err }

// IsTransportError returns whether err is a TransportError
func IsTransportError(err error) bool {
	var e TransportError
	return errors.As(err, &e)
}

// ChainRejectionError indicates that the chain refused a transaction, either at broadcast or with a
// non-zero result code after inclusion.
type ChainRejectionError struct {
	TxHash string
	Code   uint32
	err    error
}

func NewChainRejectionError(txHash string, code uint32, log string) error {
	return ChainRejectionError{TxHash: txHash, Code: code, err: errors.New(log)}
}

func NewChainRejectionErrorf(txHash string, code uint32, msg string, args ...interface{}) error {
	return ChainRejectionError{TxHash: txHash, Code: code, err: fmt.Errorf(msg, args...)}
}

func (e ChainRejectionError) Error() string {
	return fmt.Sprintf("transaction %s rejected with code %d: %s", e.TxHash, e.Code, e.err.Error())
}

func (e ChainRejectionError) Unwrap() error { return e.err }

// IsChainRejectionError returns whether err is a ChainRejectionError
func IsChainRejectionError(err error) bool {
	var e ChainRejectionError
	return errors.As(err, &e)
}

// PartialFailureError reports a fan-out in which some participants failed. Failures maps the
// validator index of every failed participant to its error.
type PartialFailureError struct {
	Operation string
	Total     int
	Failures  map[int]error
}

// NewPartialFailureError returns nil when failures is empty.
func NewPartialFailureError(operation string, total int, failures map[int]error) error {
	if len(failures) == 0 {
		return nil
	}
	return PartialFailureError{Operation: operation, Total: total, Failures: failures}
}

// Failed returns the indices of the failed participants in ascending order.
func (e PartialFailureError) Failed() []int {
	indices := make([]int, 0, len(e.Failures))
	for i := range e.Failures {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// Succeeded is the number of participants that did not fail.
func (e PartialFailureError) Succeeded() int {
	return e.Total - len(e.Failures)
}

// AllFailed reports whether no participant succeeded.
func (e PartialFailureError) AllFailed() bool {
	return e.Succeeded() <= 0
}

func (e PartialFailureError) Error() string {
	var merr *multierror.Error
	for _, i := range e.Failed() {
		merr = multierror.Append(merr, fmt.Errorf("validator %d: %w", i, e.Failures[i]))
	}
	return fmt.Sprintf("%s: %d of %d participants failed: %s", e.Operation, len(e.Failures), e.Total, merr.Error())
}

// IsPartialFailureError returns whether err is a PartialFailureError
func IsPartialFailureError(err error) bool {
	var e PartialFailureError
	return errors.As(err, &e)
}

// AsPartialFailureError unwraps err into a PartialFailureError.
func AsPartialFailureError(err error) (PartialFailureError, bool) {
	var e PartialFailureError
	ok := errors.As(err, &e)
	return e, ok
}

// InvariantViolationError indicates that observed chain state contradicts the state a scenario
// expects at its current step.
type InvariantViolationError struct {
	Invariant string
	err       error
}

func NewInvariantViolationErrorf(invariant string, msg string, args ...interface{}) error {
	return InvariantViolationError{Invariant: invariant, err: fmt.Errorf(msg, args...)}
}

func (e InvariantViolationError) Error() string {
	return fmt.Sprintf("invariant %q violated: %s", e.Invariant, e.err.Error())
}

func (e InvariantViolationError) Unwrap() error { return e.err }

// IsInvariantViolationError returns whether err is an InvariantViolationError
func IsInvariantViolationError(err error) bool {
	var e InvariantViolationError
	return errors.As(err, &e)
}
