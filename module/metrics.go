package module

import (
	"time"
)

// ScenarioMetrics tracks the progress of a bridge scenario.
type ScenarioMetrics interface {
	// ScenarioStateEntered records that the scenario reached state. stage is the time spent in the previous state.
	ScenarioStateEntered(state string, stage time.Duration)

	// ScenarioFinished records the outcome and the total duration of a scenario run.
	ScenarioFinished(success bool, duration time.Duration)

	// NonceObserved records the last attested nonce of a validator in a complete snapshot.
	NonceObserved(validator int, nonce uint64)

	// SnapshotRound counts one snapshot attempt; degraded is true when a transient query failure
	// prevented a complete snapshot.
	SnapshotRound(degraded bool)

	// ClaimSubmitted counts one false claim submission and whether it finalized.
	ClaimSubmitted(finalized bool)

	// VoteCast counts one governance vote and whether it finalized.
	VoteCast(finalized bool)
}
