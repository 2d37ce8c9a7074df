package scenario

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/metrics"
	modulemock "github.com/osmosis-labs/cosmos-gravity-bridge/module/mock"
)

func TestStateMachine_ForwardOnly(t *testing.T) {
	m := newStateMachine(metrics.NewNoopCollector(), time.Now())
	require.Equal(t, StateBaseline, m.next())

	for s := StateBaseline; s <= StateCompleted; s++ {
		tr, err := m.advance(s)
		require.NoError(t, err)
		assert.Equal(t, s-1, tr.From)
		assert.Equal(t, s, tr.To)
		assert.GreaterOrEqual(t, tr.Stage, time.Duration(0))
	}
	assert.Equal(t, StateCompleted, m.next())
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	m := newStateMachine(metrics.NewNoopCollector(), time.Now())

	// skipping a state
	_, err := m.advance(StateFaultsInjected)
	assert.True(t, module.IsInvariantViolationError(err))

	_, err = m.advance(StateBaseline)
	require.NoError(t, err)

	// staying and going back
	_, err = m.advance(StateBaseline)
	assert.True(t, module.IsInvariantViolationError(err))
	_, err = m.advance(StatePending)
	assert.True(t, module.IsInvariantViolationError(err))

	assert.Equal(t, StateFaultsInjected, m.next())
}

func TestStateMachine_ReportsEnteredStates(t *testing.T) {
	collector := modulemock.NewScenarioMetrics(t)
	collector.On("ScenarioStateEntered", "baseline", mock.AnythingOfType("time.Duration")).Once()
	collector.On("ScenarioStateEntered", "faults_injected", mock.AnythingOfType("time.Duration")).Once()

	m := newStateMachine(collector, time.Now())
	_, err := m.advance(StateBaseline)
	require.NoError(t, err)
	_, err = m.advance(StateFaultsInjected)
	require.NoError(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "halt_confirmed", StateHaltConfirmed.String())
	assert.Equal(t, "unknown(42)", State(42).String())
}

func TestScenarioError(t *testing.T) {
	cause := module.NewTransportErrorf("localhost:9090", "connection refused")
	err := NewScenarioError(StateHaltConfirmed, bridge.NonceSnapshot{0: 5, 1: 6}, cause)

	assert.True(t, IsScenarioError(err))
	assert.True(t, module.IsTransportError(err))
	serr, ok := AsScenarioError(err)
	require.True(t, ok)
	assert.Equal(t, StateHaltConfirmed, serr.State)
	assert.Equal(t, cause, serr.Cause())
	assert.Contains(t, err.Error(), "halt_confirmed")
	assert.Contains(t, err.Error(), "connection refused")

	assert.Contains(t, NewScenarioError(StateBaseline, nil, errors.New("boom")).Error(), "no snapshot observed")
	assert.False(t, IsScenarioError(cause))
}

func TestReport(t *testing.T) {
	r := newReport(3, []int{1, 2})
	assert.Nil(t, r.LastSnapshot())
	assert.Equal(t, StatePending, r.Reached())

	snapshot := bridge.NonceSnapshot{0: 5, 1: 5, 2: 5}
	r.observe(StateBaseline, snapshot)
	snapshot[0] = 9
	assert.True(t, r.LastSnapshot().Equal(bridge.NonceSnapshot{0: 5, 1: 5, 2: 5}))

	r.Transitions = append(r.Transitions, Transition{From: StatePending, To: StateBaseline})
	assert.Equal(t, StateBaseline, r.Reached())
	assert.Greater(t, r.Duration(), time.Duration(0))
}
