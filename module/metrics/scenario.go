package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

// ScenarioCollector exports scenario progress to prometheus.
type ScenarioCollector struct {
	state          *prometheus.GaugeVec
	stageDuration  *prometheus.HistogramVec
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastNonce      *prometheus.GaugeVec
	snapshotRounds *prometheus.CounterVec
	claims         *prometheus.CounterVec
	votes          *prometheus.CounterVec
}

var _ module.ScenarioMetrics = (*ScenarioCollector)(nil)

// NewScenarioCollector creates the collector and registers its metrics with registerer.
func NewScenarioCollector(registerer prometheus.Registerer) *ScenarioCollector {
	sc := &ScenarioCollector{
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemScenario,
			Name:      "state",
			Help:      "1 for the state the scenario is currently in, 0 otherwise",
		}, []string{LabelState}),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemScenario,
			Name:      "stage_duration_seconds",
			Help:      "time spent in a scenario state before moving to the next one",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{LabelState}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemScenario,
			Name:      "runs_total",
			Help:      "number of finished scenario runs",
		}, []string{LabelOutcome}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemScenario,
			Name:      "run_duration_seconds",
			Help:      "total duration of a scenario run",
			Buckets:   []float64{10, 30, 60, 300, 600, 1200, 2400},
		}),

		lastNonce: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemNonce,
			Name:      "last_event_nonce",
			Help:      "last event nonce attested by a validator's orchestrator",
		}, []string{LabelValidator}),

		snapshotRounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemNonce,
			Name:      "snapshot_rounds_total",
			Help:      "number of nonce snapshot rounds, complete or degraded",
		}, []string{LabelOutcome}),

		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemFaults,
			Name:      "false_claims_total",
			Help:      "number of injected false claims",
		}, []string{LabelOutcome}),

		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBridge,
			Subsystem: subsystemGov,
			Name:      "votes_total",
			Help:      "number of recovery votes cast",
		}, []string{LabelOutcome}),
	}

	registerer.MustRegister(
		sc.state,
		sc.stageDuration,
		sc.runs,
		sc.runDuration,
		sc.lastNonce,
		sc.snapshotRounds,
		sc.claims,
		sc.votes,
	)

	return sc
}

func (sc *ScenarioCollector) ScenarioStateEntered(state string, stage time.Duration) {
	sc.state.Reset()
	sc.state.WithLabelValues(state).Set(1)
	sc.stageDuration.WithLabelValues(state).Observe(stage.Seconds())
}

func (sc *ScenarioCollector) ScenarioFinished(success bool, duration time.Duration) {
	sc.runs.WithLabelValues(outcome(success, OutcomeSuccess, OutcomeFailure)).Inc()
	sc.runDuration.Observe(duration.Seconds())
}

func (sc *ScenarioCollector) NonceObserved(validator int, nonce uint64) {
	sc.lastNonce.WithLabelValues(strconv.Itoa(validator)).Set(float64(nonce))
}

func (sc *ScenarioCollector) SnapshotRound(degraded bool) {
	sc.snapshotRounds.WithLabelValues(outcome(degraded, OutcomeDegraded, OutcomeComplete)).Inc()
}

func (sc *ScenarioCollector) ClaimSubmitted(finalized bool) {
	sc.claims.WithLabelValues(outcome(finalized, OutcomeFinalized, OutcomeFailure)).Inc()
}

func (sc *ScenarioCollector) VoteCast(finalized bool) {
	sc.votes.WithLabelValues(outcome(finalized, OutcomeFinalized, OutcomeFailure)).Inc()
}

func outcome(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
