package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
	"github.com/osmosis-labs/cosmos-gravity-bridge/insecure/falseclaim"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/governance"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/nonce"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/poller"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/trace"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/logging"
)

// observationThresholdPercent is the share of the voting power an attestation needs to be observed.
const observationThresholdPercent = 66

// UnhaltBridge halts a gravity bridge by making a minority of orchestrators attest to an event that
// never happened, then restores liveness through a governance reset of the bridge state:
//
//  1. Baseline: every validator reports the same nonce N
//  2. FaultsInjected: the minority claims a deposit at nonce N+1
//  3. HaltConfirmed: the honest validators stay at N while the minority moves to N+1, and no
//     deposit is observed by the bridge anymore
//  4. RecoverySubmitted: a proposal resetting the bridge to N is submitted and voted on by everyone
//  5. RecoveryConfirmed: every validator is back at N
//  6. Completed: a new deposit is observed
//
// No step is retried. The first failure ends the run with a ScenarioError.
type UnhaltBridge struct {
	log     zerolog.Logger
	cfg     config.ScenarioConfig
	erc20   common.Address
	prefix  string
	fee     bridge.Fee
	network module.BridgeNetwork
	set     bridge.ValidatorSet
	metrics module.ScenarioMetrics
	tracer  module.Tracer
}

// NewUnhaltBridge creates a scenario driving network with the validators of set.
func NewUnhaltBridge(
	log zerolog.Logger,
	network module.BridgeNetwork,
	set bridge.ValidatorSet,
	chain config.ChainConfig,
	cfg config.ScenarioConfig,
	metrics module.ScenarioMetrics,
	tracer module.Tracer,
) (*UnhaltBridge, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validator set: %w", err)
	}
	if len(set) < 2 {
		return nil, fmt.Errorf("scenario needs at least 2 validators, got %d", len(set))
	}
	if err := falseclaim.ValidateMinority(set, cfg.MinorityOf(len(set))); err != nil {
		return nil, fmt.Errorf("invalid minority: %w", err)
	}

	return &UnhaltBridge{
		log:     log.With().Str("scenario", "unhalt_bridge").Logger(),
		cfg:     cfg,
		erc20:   chain.ERC20(),
		prefix:  chain.AddressPrefix,
		fee:     cfg.Fee(),
		network: network,
		set:     set,
		metrics: metrics,
		tracer:  tracer,
	}, nil
}

// run is the state of a single execution of the scenario. Its logger and components carry the
// run id.
type run struct {
	*UnhaltBridge
	log zerolog.Logger

	monitor  *nonce.Monitor
	injector *falseclaim.Injector
	driver   *governance.Driver

	machine *stateMachine
	report  *Report
}

func (u *UnhaltBridge) newRun() *run {
	report := newReport(len(u.set), u.cfg.MinorityOf(len(u.set)))
	log := u.log.With().Str("run_id", report.RunID.String()).Logger()
	return &run{
		UnhaltBridge: u,
		log:          log,
		monitor:      nonce.NewMonitor(log, u.network, u.metrics, u.prefix),
		injector:     falseclaim.NewInjector(log, u.network, u.metrics, u.fee, u.prefix),
		driver: governance.NewDriver(log, u.network, u.metrics, u.fee, u.cfg.OperationTimeout,
			governance.WithQuorum(u.cfg.VoteQuorum),
			governance.WithWorkers(uint(u.cfg.VoteWorkers)),
		),
		machine: newStateMachine(u.metrics, report.Started),
		report:  report,
	}
}

// Run executes the scenario once. The report is returned in every case; on failure the error is a
// ScenarioError naming the state that was not reached. A run stopped by ctx wraps ctx.Err().
func (u *UnhaltBridge) Run(ctx context.Context) (*Report, error) {
	r := u.newRun()
	span, ctx := u.tracer.StartSpanFromContext(ctx, trace.ScenarioRun, otelTrace.WithAttributes(
		attribute.String("run_id", r.report.RunID.String()),
		attribute.Int("validators", len(u.set)),
		attribute.IntSlice("minority", r.report.Minority),
	))

	r.log.Info().
		Int("validators", len(u.set)).
		Array("minority", logging.Indices(r.report.Minority)).
		Msg("starting scenario")

	steps := []func(context.Context) error{
		r.establishBaseline,
		r.injectFaults,
		r.confirmHalt,
		r.submitRecovery,
		r.confirmRecovery,
		r.confirmLiveness,
	}
	var err error
	for _, step := range steps {
		target := r.machine.next()
		err = r.step(ctx, target, step)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
				err = fmt.Errorf("%w: %w", ctxErr, err)
			}
			err = NewScenarioError(target, r.report.LastSnapshot(), err)
			break
		}
	}
	trace.EndSpan(span, err)

	r.report.Finished = time.Now()
	r.report.Err = err
	u.metrics.ScenarioFinished(err == nil, r.report.Duration())
	if err != nil {
		r.log.Error().Object("report", r.report).Msg("scenario failed")
		return r.report, err
	}
	r.log.Info().Object("report", r.report).Msg("scenario completed")
	return r.report, nil
}

// step runs f within a span for target and enters target once f succeeded.
func (r *run) step(ctx context.Context, target State, f func(context.Context) error) error {
	span, ctx := r.tracer.StartSpanFromContext(ctx, trace.ScenarioState(target.String()))
	err := f(ctx)
	if err == nil {
		err = r.advance(target)
	}
	trace.EndSpan(span, err)
	return err
}

func (r *run) advance(to State) error {
	t, err := r.machine.advance(to)
	if err != nil {
		return err
	}
	r.report.Transitions = append(r.report.Transitions, t)
	r.log.Info().
		Str("from", t.From.String()).
		Str("to", t.To.String()).
		Dur("stage", t.Stage).
		Msg("scenario state entered")
	return nil
}

// observe records a complete snapshot taken while trying to reach the next state.
func (r *run) observe(snapshot bridge.NonceSnapshot) {
	r.report.observe(r.machine.next(), snapshot)
}

// establishBaseline optionally moves stake to the honest validator and sends a warmup deposit, then
// requires every validator to report the same nonce.
func (r *run) establishBaseline(ctx context.Context) error {
	if r.cfg.RedistributeStake {
		if err := r.redistributeStake(ctx); err != nil {
			return err
		}
	}
	if err := r.checkMinorityPower(ctx); err != nil {
		return err
	}
	if r.cfg.WarmupDeposit {
		snapshot, err := r.monitor.Snapshot(ctx, r.set)
		if err != nil {
			return fmt.Errorf("could not snapshot nonces before warmup: %w", err)
		}
		r.report.observe(StateBaseline, snapshot)
		if err := r.depositAndAwait(ctx, "warmup", highest(snapshot)); err != nil {
			return err
		}
	}

	snapshot, err := r.monitor.Snapshot(ctx, r.set)
	if err != nil {
		return fmt.Errorf("could not snapshot baseline nonces: %w", err)
	}
	r.report.observe(StateBaseline, snapshot)
	baseline, equal := snapshot.AllEqual()
	if !equal {
		return module.NewInvariantViolationErrorf("baseline nonces equal", "validators disagree at baseline: %s", snapshot)
	}
	r.report.Baseline = baseline
	r.log.Info().Uint64("baseline", baseline).Msg("baseline established")
	return nil
}

// redistributeStake makes every validator except the honest one delegate a quarter of its starting
// stake to the honest validator, so that no minority excluding it can reach the observation threshold.
func (r *run) redistributeStake(ctx context.Context) error {
	if err := r.logPowers(ctx, "validator powers before redistribution"); err != nil {
		return err
	}
	honest, err := r.set.Honest().OperatorAddress(r.prefix)
	if err != nil {
		return fmt.Errorf("could not derive operator address of the honest validator: %w", err)
	}
	amount := bridge.NewCoin(r.cfg.StakeDenom, r.cfg.StartingStake/4)
	for i, delegator := range r.set {
		if i == bridge.HonestIndex {
			continue
		}
		tx, err := r.network.Delegate(ctx, honest, amount, delegator, r.fee)
		if err != nil {
			return fmt.Errorf("could not delegate from validator %d: %w", i, err)
		}
		if _, err := r.network.WaitForFinalization(ctx, tx, r.cfg.OperationTimeout); err != nil {
			return fmt.Errorf("delegation %s of validator %d did not finalize: %w", tx, i, err)
		}
		r.log.Debug().Int("delegator", i).Str("amount", amount.String()).Msg("stake delegated to honest validator")
	}
	return r.logPowers(ctx, "validator powers after redistribution")
}

func (r *run) logPowers(ctx context.Context, msg string) error {
	powers, err := r.network.ValidatorPowers(ctx)
	if err != nil {
		return fmt.Errorf("could not query validator powers: %w", err)
	}
	dict := zerolog.Dict()
	for _, p := range powers {
		dict = dict.Uint64(p.OperatorAddress, p.Power)
	}
	r.log.Info().Dict("powers", dict).Uint64("total", bridge.TotalPower(powers)).Msg(msg)
	return nil
}

// checkMinorityPower requires the minority to hold no more than the observation threshold of the
// voting power; otherwise its false claim would be observed instead of halting the bridge.
func (r *run) checkMinorityPower(ctx context.Context) error {
	powers, err := r.network.ValidatorPowers(ctx)
	if err != nil {
		return fmt.Errorf("could not query validator powers: %w", err)
	}
	byOperator := make(map[string]uint64, len(powers))
	for _, p := range powers {
		byOperator[p.OperatorAddress] = p.Power
	}

	var minority uint64
	for _, i := range r.report.Minority {
		operator, err := r.set[i].OperatorAddress(r.prefix)
		if err != nil {
			return fmt.Errorf("could not derive operator address of validator %d: %w", i, err)
		}
		minority += byOperator[operator]
	}
	total := bridge.TotalPower(powers)
	if minority*100 > total*observationThresholdPercent {
		return module.NewInvariantViolationErrorf("strict minority",
			"minority %v holds %d of %d voting power, above the %d%% observation threshold", r.report.Minority, minority, total, observationThresholdPercent)
	}
	return nil
}

// injectFaults makes the minority claim a deposit of one ether at the nonce following the baseline.
func (r *run) injectFaults(ctx context.Context) error {
	height, err := r.network.LatestBlockHeight(ctx)
	if err != nil {
		return fmt.Errorf("could not query ethereum block height: %w", err)
	}
	user, receiver, err := r.newUser()
	if err != nil {
		return err
	}
	template := bridge.AttestationClaim{
		EventNonce:     r.report.Baseline + 1,
		BlockHeight:    height + 1,
		TokenContract:  r.erc20,
		Amount:         bridge.OneEther(),
		EthereumSender: user.EthAddress(),
		CosmosReceiver: receiver,
	}

	span, injectCtx := r.tracer.StartSpanFromContext(ctx, trace.FalseClaimInjection, otelTrace.WithAttributes(
		attribute.Int64("event_nonce", int64(template.EventNonce)),
		attribute.IntSlice("minority", r.report.Minority),
	))
	outcomes, err := r.injector.InjectFalseClaims(injectCtx, r.set, r.report.Minority, template, r.cfg.OperationTimeout)
	trace.EndSpan(span, err)
	r.report.FaultOutcomes = outcomes
	for _, o := range outcomes {
		if o.Finalized() {
			r.report.Faulty = append(r.report.Faulty, o.Index)
		}
	}
	if err != nil {
		partial, ok := module.AsPartialFailureError(err)
		if !ok || partial.AllFailed() {
			return fmt.Errorf("false claim injection failed: %w", err)
		}
		r.log.Warn().Err(err).Array("faulty", logging.Indices(r.report.Faulty)).Msg("continuing with the minority members whose claim finalized")
	}
	return nil
}

// confirmHalt waits for the honest and faulty validators to split, then optionally proves that the
// bridge no longer observes deposits.
func (r *run) confirmHalt(ctx context.Context) error {
	faulty := make(map[int]struct{}, len(r.report.Faulty))
	for _, i := range r.report.Faulty {
		faulty[i] = struct{}{}
	}
	var honest []int
	for i := range r.set {
		if _, ok := faulty[i]; !ok {
			honest = append(honest, i)
		}
	}
	groups := bridge.NonceGroups{honest, r.report.Faulty}

	snapshot, err := r.monitor.AwaitConvergence(ctx, r.set, groups, r.cfg.PollInterval, r.cfg.TotalTimeout, nonce.WithObserver(r.observe))
	if err != nil {
		return fmt.Errorf("halt partition not observed: %w", err)
	}
	honestNonce, _ := groups.GroupValue(snapshot, 0)
	faultyNonce, _ := groups.GroupValue(snapshot, 1)
	if honestNonce != r.report.Baseline || faultyNonce != r.report.Baseline+1 {
		return module.NewInvariantViolationErrorf("halt partition",
			"expected honest validators at %d and faulty validators at %d, observed %s", r.report.Baseline, r.report.Baseline+1, snapshot)
	}
	r.log.Info().Dict("nonces", logging.Snapshot(snapshot)).Msg("halt partition observed")

	if !r.cfg.VerifyHalt {
		return nil
	}
	return r.verifyHalted(ctx)
}

// verifyHalted sends a legitimate deposit and requires that the bridge does not act on it within the
// observation window once every orchestrator attested to it.
func (r *run) verifyHalted(ctx context.Context) error {
	user, receiver, err := r.newUser()
	if err != nil {
		return err
	}
	denom := bridge.GravityDenom(r.erc20)
	before, err := r.network.Balance(ctx, receiver, denom)
	if err != nil {
		return fmt.Errorf("could not query balance of %s: %w", receiver, err)
	}
	hash, err := r.network.SendToCosmos(ctx, user.EthKey, r.erc20, receiver, r.cfg.Deposits())
	if err != nil {
		return fmt.Errorf("could not send halt check deposit: %w", err)
	}
	r.log.Info().Str("eth_tx", hash.Hex()).Str("receiver", receiver).Msg("halt check deposit sent")

	_, err = r.monitor.AwaitSnapshot(ctx, r.set, bridge.AllEqualTo(r.report.Baseline+1), r.cfg.PollInterval, r.cfg.TotalTimeout, nonce.WithObserver(r.observe))
	if err != nil {
		return fmt.Errorf("halt check deposit was not attested by every validator: %w", err)
	}

	_, err = poller.Until[*uint256.Int](ctx, r.balanceOf(receiver, denom), grewBy(before, r.cfg.Deposits()), r.cfg.PollInterval, r.cfg.HaltObservationWindow)
	switch {
	case err == nil:
		return module.NewInvariantViolationErrorf("bridge halted", "deposit to %s was observed while the bridge was halted", receiver)
	case poller.IsTimeoutError(err):
		r.log.Info().Dur("window", r.cfg.HaltObservationWindow).Msg("bridge halted: deposit not observed")
		return nil
	default:
		return fmt.Errorf("could not observe halt check deposit: %w", err)
	}
}

// submitRecovery proposes to reset the bridge to the baseline from the honest validator and makes
// every validator vote for it.
func (r *run) submitRecovery(ctx context.Context) error {
	proposal := bridge.RecoveryProposal{
		TargetResetNonce: r.report.Baseline,
		StateResetFlag:   true,
		Deposit:          r.cfg.Deposit(),
	}
	id, err := r.driver.SubmitRecovery(ctx, r.set.Honest(), proposal, r.set)
	if err != nil {
		return err
	}
	r.report.Proposal = id

	span, votesCtx := r.tracer.StartSpanFromContext(ctx, trace.VoteCollection, otelTrace.WithAttributes(
		attribute.Int64("proposal_id", int64(id)),
	))
	tally, err := r.driver.CollectVotes(votesCtx, id, r.set)
	trace.EndSpan(span, err)
	r.report.Votes = tally
	if err != nil {
		return fmt.Errorf("recovery votes did not reach quorum: %w", err)
	}
	return nil
}

// confirmRecovery waits until every validator is back at the baseline nonce.
func (r *run) confirmRecovery(ctx context.Context) error {
	reset := r.monitor.Check(r.set, bridge.AllEqualTo(r.report.Baseline), nonce.WithObserver(r.observe))
	err := r.driver.AwaitEffect(ctx, reset, r.cfg.PollInterval, r.cfg.RecoveryDeadline)
	if err != nil {
		return fmt.Errorf("bridge state was not reset to %d: %w", r.report.Baseline, err)
	}
	r.log.Info().Dict("nonces", logging.Snapshot(r.report.LastSnapshot())).Msg("bridge state reset")
	return nil
}

// confirmLiveness requires a legitimate deposit to be observed after the reset.
func (r *run) confirmLiveness(ctx context.Context) error {
	return r.depositAndAwait(ctx, "liveness", r.report.Baseline)
}

// depositAndAwait sends a deposit to a fresh user and waits until every validator agrees on a nonce
// above the given one and the deposit is credited.
func (r *run) depositAndAwait(ctx context.Context, purpose string, above uint64) error {
	user, receiver, err := r.newUser()
	if err != nil {
		return err
	}
	denom := bridge.GravityDenom(r.erc20)
	before, err := r.network.Balance(ctx, receiver, denom)
	if err != nil {
		return fmt.Errorf("could not query balance of %s: %w", receiver, err)
	}
	hash, err := r.network.SendToCosmos(ctx, user.EthKey, r.erc20, receiver, r.cfg.Deposits())
	if err != nil {
		return fmt.Errorf("could not send %s deposit: %w", purpose, err)
	}
	r.log.Info().Str("eth_tx", hash.Hex()).Str("receiver", receiver).Str("purpose", purpose).Msg("deposit sent")

	advanced := func(snapshot bridge.NonceSnapshot) bool {
		value, equal := snapshot.AllEqual()
		return equal && value > above
	}
	snapshot, err := r.monitor.AwaitSnapshot(ctx, r.set, advanced, r.cfg.PollInterval, r.cfg.TotalTimeout, nonce.WithObserver(r.observe))
	if err != nil {
		return fmt.Errorf("%s deposit was not attested by every validator: %w", purpose, err)
	}
	_, err = poller.Until[*uint256.Int](ctx, r.balanceOf(receiver, denom), grewBy(before, r.cfg.Deposits()), r.cfg.PollInterval, r.cfg.TotalTimeout)
	if err != nil {
		return fmt.Errorf("%s deposit was not credited to %s: %w", purpose, receiver, err)
	}
	r.log.Info().Str("purpose", purpose).Dict("nonces", logging.Snapshot(snapshot)).Msg("deposit observed")
	return nil
}

func (r *run) newUser() (bridge.BridgeUser, string, error) {
	user, err := bridge.GenerateBridgeUser()
	if err != nil {
		return bridge.BridgeUser{}, "", fmt.Errorf("could not generate bridge user: %w", err)
	}
	receiver, err := user.CosmosAddress(r.prefix)
	if err != nil {
		return bridge.BridgeUser{}, "", fmt.Errorf("could not derive bridge user address: %w", err)
	}
	return user, receiver, nil
}

func (r *run) balanceOf(address, denom string) poller.SampleFunc[*uint256.Int] {
	return func(ctx context.Context) (*uint256.Int, error) {
		return r.network.Balance(ctx, address, denom)
	}
}

// grewBy returns a predicate holding once a balance reached before+amount.
func grewBy(before, amount *uint256.Int) func(*uint256.Int) bool {
	target := new(uint256.Int).Add(before, amount)
	return func(balance *uint256.Int) bool {
		return !balance.Lt(target)
	}
}

func highest(snapshot bridge.NonceSnapshot) uint64 {
	var max uint64
	for _, v := range snapshot {
		if v > max {
			max = v
		}
	}
	return max
}
