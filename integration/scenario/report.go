package scenario

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osmosis-labs/cosmos-gravity-bridge/insecure/falseclaim"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/governance"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/logging"
)

// Observation is a complete nonce snapshot taken while the scenario was trying to reach State.
type Observation struct {
	State    State
	At       time.Time
	Snapshot bridge.NonceSnapshot
}

// Report is everything a scenario run observed. It is returned on failure as well, so a failed run
// can be diagnosed without running it again.
type Report struct {
	RunID      uuid.UUID
	Started    time.Time
	Finished   time.Time
	Validators int
	Minority   []int
	// Baseline is the nonce every validator agreed on before the faults.
	Baseline uint64
	// Faulty are the minority members whose false claim finalized.
	Faulty        []int
	FaultOutcomes []falseclaim.SubmissionOutcome
	Proposal      bridge.ProposalID
	Votes         *governance.VoteTally
	Transitions   []Transition
	Observations  []Observation
	Err           error

	mu sync.Mutex
}

func newReport(validators int, minority []int) *Report {
	return &Report{
		RunID:      uuid.New(),
		Started:    time.Now(),
		Validators: validators,
		Minority:   minority,
	}
}

func (r *Report) observe(state State, snapshot bridge.NonceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Observations = append(r.Observations, Observation{State: state, At: time.Now(), Snapshot: snapshot.Copy()})
}

// LastSnapshot returns the most recent complete snapshot, or nil if none was observed.
func (r *Report) LastSnapshot() bridge.NonceSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Observations) == 0 {
		return nil
	}
	return r.Observations[len(r.Observations)-1].Snapshot.Copy()
}

// Reached returns the last state the run entered.
func (r *Report) Reached() State {
	if len(r.Transitions) == 0 {
		return StatePending
	}
	return r.Transitions[len(r.Transitions)-1].To
}

// Duration is the wall clock time of the run.
func (r *Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return time.Since(r.Started)
	}
	return r.Finished.Sub(r.Started)
}

// MarshalZerologObject renders a summary of the run.
func (r *Report) MarshalZerologObject(e *zerolog.Event) {
	e.Str("run_id", r.RunID.String()).
		Str("reached", r.Reached().String()).
		Dur("duration", r.Duration()).
		Int("validators", r.Validators).
		Array("minority", logging.Indices(r.Minority)).
		Array("faulty", logging.Indices(r.Faulty)).
		Uint64("baseline", r.Baseline).
		Int("observations", len(r.Observations))
	if r.Proposal != 0 {
		e.Uint64("proposal_id", uint64(r.Proposal))
	}
	if r.Votes != nil {
		e.Float64("vote_fraction", r.Votes.Fraction())
	}
	if last := r.LastSnapshot(); last != nil {
		e.Dict("last_snapshot", logging.Snapshot(last))
	}
	if r.Err != nil {
		e.AnErr("failure", r.Err)
	}
}
