package metrics

import (
	"time"

	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

type NoopCollector struct{}

var _ module.ScenarioMetrics = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) ScenarioStateEntered(state string, stage time.Duration) {}
func (nc *NoopCollector) ScenarioFinished(success bool, duration time.Duration)  {}
func (nc *NoopCollector) NonceObserved(validator int, nonce uint64)              {}
func (nc *NoopCollector) SnapshotRound(degraded bool)                            {}
func (nc *NoopCollector) ClaimSubmitted(finalized bool)                          {}
func (nc *NoopCollector) VoteCast(finalized bool)                                {}
