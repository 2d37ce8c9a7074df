package governance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/poller"
)

const (
	// DefaultQuorum is the fraction of validators whose votes must finalize for CollectVotes to succeed.
	DefaultQuorum = 2.0 / 3.0

	// DefaultWorkers bounds the number of vote finalizations awaited concurrently.
	DefaultWorkers = 8
)

// VoteTally records which validators' votes on a proposal finalized.
type VoteTally struct {
	Proposal  bridge.ProposalID
	Total     int
	Finalized []int
	Failures  map[int]error
}

// Fraction is the share of validators whose vote finalized.
func (t VoteTally) Fraction() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(len(t.Finalized)) / float64(t.Total)
}

// Driver submits the bridge recovery proposal and makes every validator vote for it.
type Driver struct {
	log         zerolog.Logger
	gov         module.Governance
	metrics     module.ScenarioMetrics
	fee         bridge.Fee
	voteTimeout time.Duration
	quorum      float64
	workers     uint
}

type Option func(*Driver)

// WithQuorum overrides DefaultQuorum.
func WithQuorum(fraction float64) Option {
	return func(d *Driver) {
		d.quorum = fraction
	}
}

// WithWorkers overrides DefaultWorkers.
func WithWorkers(workers uint) Option {
	return func(d *Driver) {
		d.workers = workers
	}
}

// NewDriver creates a driver paying fee for every governance transaction and waiting up to
// voteTimeout for each vote to finalize.
func NewDriver(log zerolog.Logger, gov module.Governance, metrics module.ScenarioMetrics, fee bridge.Fee, voteTimeout time.Duration, opts ...Option) *Driver {
	d := &Driver{
		log:         log.With().Str("module", "governance_driver").Logger(),
		gov:         gov,
		metrics:     metrics,
		fee:         fee,
		voteTimeout: voteTimeout,
		quorum:      DefaultQuorum,
		workers:     DefaultWorkers,
	}
	for _, apply := range opts {
		apply(d)
	}
	return d
}

// SubmitRecovery submits the reset proposal from proposer with the proposal's deposit. proposer
// must be a member of set. Any failure is returned; there is no retry.
func (d *Driver) SubmitRecovery(ctx context.Context, proposer bridge.ValidatorIdentity, proposal bridge.RecoveryProposal, set bridge.ValidatorSet) (bridge.ProposalID, error) {
	index, ok := set.IndexOf(proposer)
	if !ok {
		return 0, fmt.Errorf("proposer is not a member of the validator set")
	}
	if err := proposal.Validate(); err != nil {
		return 0, fmt.Errorf("invalid recovery proposal: %w", err)
	}
	content, err := proposal.Content()
	if err != nil {
		return 0, fmt.Errorf("could not render recovery proposal: %w", err)
	}

	id, err := d.gov.SubmitProposal(ctx, content, proposal.Deposit, proposer, d.fee)
	if err != nil {
		return 0, fmt.Errorf("could not submit recovery proposal: %w", err)
	}

	d.log.Info().
		Int("proposer", index).
		Uint64("proposal_id", uint64(id)).
		Uint64("reset_nonce", proposal.TargetResetNonce).
		Bool("reset_state", proposal.StateResetFlag).
		Str("deposit", proposal.Deposit.String()).
		Msg("recovery proposal submitted")
	return id, nil
}

// CollectVotes casts a Yes vote on proposal id from every validator of set and waits for every
// vote to finalize. A failed vote is logged and recorded in the tally but never stops the others.
// Expected errors:
//   - module.PartialFailureError if fewer than the quorum fraction of votes finalized; the tally is returned alongside
//   - an error if the proposal is not in its voting period
func (d *Driver) CollectVotes(ctx context.Context, id bridge.ProposalID, set bridge.ValidatorSet) (*VoteTally, error) {
	if len(set) == 0 {
		return nil, fmt.Errorf("empty validator set")
	}
	voting, err := d.gov.ProposalsInVotingPeriod(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list proposals in voting period: %w", err)
	}
	if !containsProposal(voting, id) {
		return nil, fmt.Errorf("proposal %d is not in its voting period", id)
	}

	log := d.log.With().Uint64("proposal_id", uint64(id)).Logger()

	var mu sync.Mutex
	failures := make(map[int]error)
	finalized := make([]bool, len(set))
	fail := func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		failures[i] = err
	}

	txs := make([]bridge.TxHandle, len(set))
	for i, voter := range set {
		tx, err := d.gov.VoteProposal(ctx, id, bridge.VoteYes, voter, d.fee)
		if err != nil {
			log.Warn().Err(err).Int("validator", i).Msg("could not broadcast vote")
			fail(i, fmt.Errorf("could not broadcast vote: %w", err))
			continue
		}
		txs[i] = tx
	}

	pool := workerpool.New(int(d.workers))
	for i := range set {
		if txs[i] == (bridge.TxHandle{}) {
			continue
		}
		i := i
		pool.Submit(func() {
			result, err := d.gov.WaitForFinalization(ctx, txs[i], d.voteTimeout)
			if err != nil {
				log.Warn().Err(err).Int("validator", i).Str("tx", txs[i].Hash).Msg("vote did not finalize")
				fail(i, fmt.Errorf("vote %s did not finalize: %w", txs[i], err))
				return
			}
			log.Debug().Int("validator", i).Str("tx", result.Hash).Uint64("height", result.Height).Msg("vote finalized")
			mu.Lock()
			finalized[i] = true
			mu.Unlock()
		})
	}
	pool.StopWait()

	tally := &VoteTally{Proposal: id, Total: len(set), Failures: failures}
	for i, ok := range finalized {
		d.metrics.VoteCast(ok)
		if ok {
			tally.Finalized = append(tally.Finalized, i)
		}
	}

	if tally.Fraction() < d.quorum {
		return tally, module.NewPartialFailureError("recovery votes", tally.Total, failures)
	}
	log.Info().
		Int("finalized", len(tally.Finalized)).
		Int("failed", len(failures)).
		Float64("fraction", tally.Fraction()).
		Msg("recovery votes collected")
	return tally, nil
}

// AwaitEffect polls predicate until it reports that the proposal took effect.
// Expected errors are those of poller.Until.
func (d *Driver) AwaitEffect(ctx context.Context, predicate func(ctx context.Context) (bool, error), interval time.Duration, deadline time.Duration) error {
	return poller.UntilTrue(ctx, predicate, interval, deadline)
}

func containsProposal(ids []bridge.ProposalID, id bridge.ProposalID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
