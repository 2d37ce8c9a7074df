package nonce

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/poller"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/logging"
)

// Monitor observes the last event nonce every orchestrator of a validator set has attested to.
type Monitor struct {
	log     zerolog.Logger
	querier module.ChainQuerier
	metrics module.ScenarioMetrics
	prefix  string
}

// NewMonitor creates a monitor querying querier for orchestrator addresses with the given bech32 prefix.
func NewMonitor(log zerolog.Logger, querier module.ChainQuerier, metrics module.ScenarioMetrics, prefix string) *Monitor {
	return &Monitor{
		log:     log.With().Str("module", "nonce_monitor").Logger(),
		querier: querier,
		metrics: metrics,
		prefix:  prefix,
	}
}

// Snapshot queries the last event nonce of every validator in set concurrently. The snapshot is
// complete or not returned at all: the first failed query fails the whole snapshot.
// Expected errors:
//   - module.TransportError if any query could not be answered
func (m *Monitor) Snapshot(ctx context.Context, set bridge.ValidatorSet) (bridge.NonceSnapshot, error) {
	orchestrators, err := set.OrchestratorAddresses(m.prefix)
	if err != nil {
		return nil, fmt.Errorf("could not derive orchestrator addresses: %w", err)
	}

	nonces := make([]uint64, len(orchestrators))
	g, gCtx := errgroup.WithContext(ctx)
	for i, orchestrator := range orchestrators {
		i, orchestrator := i, orchestrator
		g.Go(func() error {
			nonce, err := m.querier.LastEventNonce(gCtx, orchestrator)
			if err != nil {
				return fmt.Errorf("could not query last event nonce of validator %d (%s): %w", i, orchestrator, err)
			}
			nonces[i] = nonce
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := make(bridge.NonceSnapshot, len(nonces))
	for i, nonce := range nonces {
		snapshot[i] = nonce
		m.metrics.NonceObserved(i, nonce)
	}
	return snapshot, nil
}

type awaitConfig struct {
	observers []func(bridge.NonceSnapshot)
}

// AwaitOption configures a single wait of the monitor.
type AwaitOption func(*awaitConfig)

func newAwaitConfig(opts []AwaitOption) awaitConfig {
	var cfg awaitConfig
	for _, apply := range opts {
		apply(&cfg)
	}
	return cfg
}

// WithObserver calls observe with every complete snapshot taken during the wait, before the
// predicate is evaluated on it.
func WithObserver(observe func(bridge.NonceSnapshot)) AwaitOption {
	return func(c *awaitConfig) {
		c.observers = append(c.observers, observe)
	}
}

// AwaitConvergence polls snapshots until the nonces partition exactly into groups, returning the
// matching snapshot. On failure the last complete snapshot is returned with the error.
// Expected errors:
//   - poller.TimeoutError if the partition was not observed within deadline
//   - poller.CancelledError if ctx was cancelled
//   - any non-transient query error
func (m *Monitor) AwaitConvergence(ctx context.Context, set bridge.ValidatorSet, groups bridge.NonceGroups, interval time.Duration, deadline time.Duration, opts ...AwaitOption) (bridge.NonceSnapshot, error) {
	if err := groups.Validate(len(set)); err != nil {
		return nil, fmt.Errorf("invalid nonce groups: %w", err)
	}
	return m.AwaitSnapshot(ctx, set, groups.MatchedBy, interval, deadline, opts...)
}

// round is one poll round of AwaitSnapshot. A degraded round had a transient query failure and
// carries no snapshot.
type round struct {
	snapshot bridge.NonceSnapshot
	degraded bool
	err      error
}

// sample takes one snapshot for a wait. Transient query failures yield a degraded round instead of
// an error.
func (m *Monitor) sample(ctx context.Context, set bridge.ValidatorSet, cfg awaitConfig) (round, error) {
	snapshot, err := m.Snapshot(ctx, set)
	if err != nil {
		if module.IsTransportError(err) {
			m.metrics.SnapshotRound(true)
			m.log.Warn().Err(err).Msg("degraded snapshot round, ignoring")
			return round{degraded: true, err: err}, nil
		}
		return round{}, err
	}
	m.metrics.SnapshotRound(false)
	m.log.Debug().Dict("nonces", logging.Snapshot(snapshot)).Msg("nonce snapshot")
	for _, observe := range cfg.observers {
		observe(snapshot)
	}
	return round{snapshot: snapshot}, nil
}

// AwaitSnapshot polls snapshots until predicate holds for one of them. Rounds in which a query
// failed with a module.TransportError are degraded: they never satisfy the predicate and never
// replace the last complete snapshot. Any other query error ends the wait.
func (m *Monitor) AwaitSnapshot(ctx context.Context, set bridge.ValidatorSet, predicate func(bridge.NonceSnapshot) bool, interval time.Duration, deadline time.Duration, opts ...AwaitOption) (bridge.NonceSnapshot, error) {
	cfg := newAwaitConfig(opts)
	var lastComplete bridge.NonceSnapshot

	sample := func(ctx context.Context) (round, error) {
		r, err := m.sample(ctx, set, cfg)
		if err == nil && !r.degraded {
			lastComplete = r.snapshot
		}
		return r, err
	}
	satisfied := func(r round) bool {
		return !r.degraded && predicate(r.snapshot)
	}

	last, err := poller.Until[round](ctx, sample, satisfied, interval, deadline)
	if err != nil {
		if last.degraded && poller.IsTimeoutError(err) {
			err = fmt.Errorf("%w (last round degraded: %s)", err, last.err.Error())
		}
		return lastComplete, err
	}
	return last.snapshot, nil
}

// Check returns a single-round check reporting whether predicate holds for a fresh snapshot, for
// waits driven by other components. A degraded round reports false; any other query error is
// returned.
func (m *Monitor) Check(set bridge.ValidatorSet, predicate func(bridge.NonceSnapshot) bool, opts ...AwaitOption) func(ctx context.Context) (bool, error) {
	cfg := newAwaitConfig(opts)
	return func(ctx context.Context) (bool, error) {
		r, err := m.sample(ctx, set, cfg)
		if err != nil {
			return false, err
		}
		return !r.degraded && predicate(r.snapshot), nil
	}
}
