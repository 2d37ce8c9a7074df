package scenario

import (
	"fmt"
	"time"

	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

// State is the progress of a halt/recovery scenario. States are only ever entered in declaration
// order, each one after the observed chain state satisfied its guard.
type State int

const (
	// StatePending is the state before the baseline was established.
	StatePending State = iota
	// StateBaseline: every validator reports the same nonce.
	StateBaseline
	// StateFaultsInjected: the minority submitted its false claims.
	StateFaultsInjected
	// StateHaltConfirmed: the honest validators stayed at the baseline and the minority advanced by one.
	StateHaltConfirmed
	// StateRecoverySubmitted: the reset proposal was submitted and voted on.
	StateRecoverySubmitted
	// StateRecoveryConfirmed: every validator was reset to the baseline.
	StateRecoveryConfirmed
	// StateCompleted: a legitimate deposit was observed after the reset.
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateBaseline:
		return "baseline"
	case StateFaultsInjected:
		return "faults_injected"
	case StateHaltConfirmed:
		return "halt_confirmed"
	case StateRecoverySubmitted:
		return "recovery_submitted"
	case StateRecoveryConfirmed:
		return "recovery_confirmed"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Transition records entering a state.
type Transition struct {
	From State
	To   State
	At   time.Time
	// Stage is the time spent in From.
	Stage time.Duration
}

// stateMachine guards the one-directional progress of a scenario.
type stateMachine struct {
	state   State
	entered time.Time
	metrics module.ScenarioMetrics
}

func newStateMachine(metrics module.ScenarioMetrics, start time.Time) *stateMachine {
	return &stateMachine{state: StatePending, entered: start, metrics: metrics}
}

// advance enters to, which must directly follow the current state.
// Expected errors:
//   - module.InvariantViolationError for any other move
func (m *stateMachine) advance(to State) (Transition, error) {
	if to != m.state+1 {
		return Transition{}, module.NewInvariantViolationErrorf("one directional progress", "illegal transition from %s to %s", m.state, to)
	}
	now := time.Now()
	t := Transition{From: m.state, To: to, At: now, Stage: now.Sub(m.entered)}
	m.state = to
	m.entered = now
	m.metrics.ScenarioStateEntered(to.String(), t.Stage)
	return t, nil
}

// next is the state the scenario is currently trying to reach.
func (m *stateMachine) next() State {
	if m.state == StateCompleted {
		return StateCompleted
	}
	return m.state + 1
}
