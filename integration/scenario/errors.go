package scenario

import (
	"errors"
	"fmt"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// ScenarioError is the terminal failure of a scenario run. State is the state the scenario failed to
// reach and LastSnapshot the last complete nonce snapshot observed before the failure, if any.
type ScenarioError struct {
	State        State
	LastSnapshot bridge.NonceSnapshot
	err          error
}

func NewScenarioError(state State, lastSnapshot bridge.NonceSnapshot, err error) error {
	return ScenarioError{State: state, LastSnapshot: lastSnapshot, err: err}
}

func (e ScenarioError) Error() string {
	if e.LastSnapshot == nil {
		return fmt.Sprintf("scenario failed before reaching %s (no snapshot observed): %s", e.State, e.err.Error())
	}
	return fmt.Sprintf("scenario failed before reaching %s (last snapshot %s): %s", e.State, e.LastSnapshot, e.err.Error())
}

// Cause returns the error that ended the scenario.
func (e ScenarioError) Cause() error { return e.err }

func (e ScenarioError) Unwrap() error { return e.err }

// IsScenarioError returns whether err is a ScenarioError
func IsScenarioError(err error) bool {
	var e ScenarioError
	return errors.As(err, &e)
}

// AsScenarioError unwraps err into a ScenarioError.
func AsScenarioError(err error) (ScenarioError, bool) {
	var e ScenarioError
	ok := errors.As(err, &e)
	return e, ok
}
