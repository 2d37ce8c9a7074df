package falseclaim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/logging"
)

// SubmissionOutcome is the result of one minority member's false claim.
type SubmissionOutcome struct {
	Index        int
	Orchestrator string
	Claim        bridge.AttestationClaim
	Tx           bridge.TxHandle
	Result       *bridge.TxResult
	Err          error
}

// Finalized reports whether the claim was broadcast and included without error.
func (o SubmissionOutcome) Finalized() bool {
	return o.Err == nil && o.Result != nil
}

// Injector makes a chosen subset of orchestrators attest to an event that never happened on Ethereum.
type Injector struct {
	log       zerolog.Logger
	submitter module.ClaimSubmitter
	metrics   module.ScenarioMetrics
	fee       bridge.Fee
	prefix    string
}

// NewInjector creates an injector broadcasting through submitter and paying fee for every claim.
func NewInjector(log zerolog.Logger, submitter module.ClaimSubmitter, metrics module.ScenarioMetrics, fee bridge.Fee, prefix string) *Injector {
	return &Injector{
		log:       log.With().Str("module", "false_claim_injector").Logger(),
		submitter: submitter,
		metrics:   metrics,
		fee:       fee,
		prefix:    prefix,
	}
}

// ValidateMinority checks that minority is a non-empty set of distinct members of set that excludes
// the honest validator.
func ValidateMinority(set bridge.ValidatorSet, minority []int) error {
	if len(minority) == 0 {
		return fmt.Errorf("empty minority")
	}
	seen := make(map[int]struct{}, len(minority))
	for _, i := range minority {
		if i == bridge.HonestIndex {
			return fmt.Errorf("minority must not include the honest validator %d", bridge.HonestIndex)
		}
		if !set.Contains(i) {
			return fmt.Errorf("minority member %d out of range [0, %d)", i, len(set))
		}
		if _, dup := seen[i]; dup {
			return fmt.Errorf("minority member %d listed twice", i)
		}
		seen[i] = struct{}{}
	}
	return nil
}

// InjectFalseClaims submits template from the orchestrator of every minority member. All claims are
// broadcast concurrently before any finalization is awaited; then every finalization is awaited
// concurrently. A failure of one member never stops the others. Each member broadcasts exactly once.
//
// One outcome per member is returned, in minority order. When at least one member failed, the
// outcomes are returned together with a module.PartialFailureError keyed by validator index.
func (inj *Injector) InjectFalseClaims(ctx context.Context, set bridge.ValidatorSet, minority []int, template bridge.AttestationClaim, submitTimeout time.Duration) ([]SubmissionOutcome, error) {
	if err := ValidateMinority(set, minority); err != nil {
		return nil, fmt.Errorf("invalid minority: %w", err)
	}

	outcomes := make([]SubmissionOutcome, len(minority))
	for k, i := range minority {
		orchestrator, err := set[i].OrchestratorAddress(inj.prefix)
		if err != nil {
			return nil, fmt.Errorf("could not derive orchestrator address of validator %d: %w", i, err)
		}
		claim := template.WithOrchestrator(orchestrator)
		if err := claim.ValidateBasic(); err != nil {
			return nil, fmt.Errorf("invalid claim for validator %d: %w", i, err)
		}
		outcomes[k] = SubmissionOutcome{Index: i, Orchestrator: orchestrator, Claim: claim}
	}

	log := inj.log.With().
		Array("minority", logging.Indices(minority)).
		Dict("claim", logging.Claim(template)).
		Logger()
	log.Info().Msg("injecting false claims")

	// phase 1: fire all
	var wg sync.WaitGroup
	for k := range outcomes {
		wg.Add(1)
		go func(outcome *SubmissionOutcome) {
			defer wg.Done()
			submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
			defer cancel()
			tx, err := inj.submitter.SubmitClaim(submitCtx, outcome.Claim, set[outcome.Index], inj.fee)
			if err != nil {
				outcome.Err = fmt.Errorf("could not broadcast claim: %w", err)
				return
			}
			outcome.Tx = tx
		}(&outcomes[k])
	}
	wg.Wait()

	// phase 2: wait all
	for k := range outcomes {
		if outcomes[k].Err != nil {
			continue
		}
		wg.Add(1)
		go func(outcome *SubmissionOutcome) {
			defer wg.Done()
			result, err := inj.submitter.WaitForFinalization(ctx, outcome.Tx, submitTimeout)
			if err == nil && result == nil {
				err = fmt.Errorf("empty finalization result")
			}
			outcome.Result = result
			if err != nil {
				outcome.Err = fmt.Errorf("claim %s did not finalize: %w", outcome.Tx, err)
			}
		}(&outcomes[k])
	}
	wg.Wait()

	failures := make(map[int]error)
	for _, outcome := range outcomes {
		inj.metrics.ClaimSubmitted(outcome.Finalized())
		if outcome.Err != nil {
			failures[outcome.Index] = outcome.Err
			log.Warn().Err(outcome.Err).Int("validator", outcome.Index).Msg("false claim failed")
			continue
		}
		log.Info().
			Int("validator", outcome.Index).
			Str("tx", outcome.Tx.Hash).
			Uint64("height", outcome.Result.Height).
			Msg("false claim finalized")
	}

	return outcomes, module.NewPartialFailureError("false claims", len(outcomes), failures)
}
