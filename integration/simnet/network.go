package simnet

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

// Endpoint names the simulated network in transport errors.
const Endpoint = "simnet"

// result codes of rejected transactions
const (
	codeUnauthorized       uint32 = 4
	codeInsufficientFunds  uint32 = 5
	codeInvalidRequest     uint32 = 18
	codeNonContiguousNonce uint32 = 3
	codeInactiveProposal   uint32 = 2
	codeInvalidDeposit     uint32 = 7
	codeFault              uint32 = 99
)

// Network is an in-memory gravity bridge network: a Cosmos chain running the gravity, staking and
// governance rules, the Ethereum side of the bridge, and one orchestrator per validator relaying
// Ethereum events. It implements every collaborator a scenario drives.
//
// The network has no goroutines. Time is wall clock based and state is advanced lazily: every
// public method first applies all blocks, relays and tallies that are due.
type Network struct {
	log    zerolog.Logger
	params Params
	set    bridge.ValidatorSet
	start  time.Time
	txSeq  *atomic.Uint64

	mu         sync.Mutex
	tasks      []task
	validators []*validatorState
	byOrch     map[string]int
	byValoper  map[string]int
	balances   map[string]map[string]*uint256.Int
	txs        map[string]*txEntry

	lastObserved uint64
	attestations map[uint64]map[common.Hash]*attestation

	proposals    map[bridge.ProposalID]*proposal
	nextProposal bridge.ProposalID

	ethNonce  uint64
	ethEvents []ethEvent

	faults faults
}

var _ module.BridgeNetwork = (*Network)(nil)

type validatorState struct {
	index          int
	account        string
	operator       string
	orchestrator   string
	tokens         uint64
	lastEventNonce uint64
	relaying       bool
}

func (v *validatorState) power() uint64 {
	return v.tokens / PowerReduction
}

// task is a state transition due at a point in time.
type task struct {
	at   time.Time
	name string
	run  func(at time.Time)
}

type txEntry struct {
	hash      string
	includeAt time.Time
	result    *bridge.TxResult
	proposal  bridge.ProposalID
}

// NewNetwork creates a network whose genesis bonds params.StartingStake to every validator of set and
// funds the validator and orchestrator accounts with params.StartingBalance.
func NewNetwork(log zerolog.Logger, set bridge.ValidatorSet, params Params) (*Network, error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validator set: %w", err)
	}
	if params.BlockTime <= 0 {
		return nil, fmt.Errorf("block time must be positive, got %v", params.BlockTime)
	}

	n := &Network{
		log:          log.With().Str("module", "simnet").Logger(),
		params:       params,
		set:          set,
		start:        time.Now(),
		txSeq:        atomic.NewUint64(0),
		byOrch:       make(map[string]int, len(set)),
		byValoper:    make(map[string]int, len(set)),
		balances:     make(map[string]map[string]*uint256.Int),
		txs:          make(map[string]*txEntry),
		lastObserved: params.InitialEventNonce,
		attestations: make(map[uint64]map[common.Hash]*attestation),
		proposals:    make(map[bridge.ProposalID]*proposal),
		nextProposal: 1,
		ethNonce:     params.InitialEventNonce,
		faults:       newFaults(),
	}

	for i, identity := range set {
		account, err := identity.ValidatorAddress(params.AddressPrefix)
		if err != nil {
			return nil, fmt.Errorf("could not derive account of validator %d: %w", i, err)
		}
		operator, err := identity.OperatorAddress(params.AddressPrefix)
		if err != nil {
			return nil, fmt.Errorf("could not derive operator of validator %d: %w", i, err)
		}
		orchestrator, err := identity.OrchestratorAddress(params.AddressPrefix)
		if err != nil {
			return nil, fmt.Errorf("could not derive orchestrator of validator %d: %w", i, err)
		}
		n.validators = append(n.validators, &validatorState{
			index:          i,
			account:        account,
			operator:       operator,
			orchestrator:   orchestrator,
			tokens:         params.StartingStake,
			lastEventNonce: params.InitialEventNonce,
			relaying:       true,
		})
		n.byOrch[orchestrator] = i
		n.byValoper[operator] = i
		n.credit(account, params.StakeDenom, uint256.NewInt(params.StartingBalance))
		n.credit(orchestrator, params.StakeDenom, uint256.NewInt(params.StartingBalance))
	}

	n.log.Info().
		Int("validators", len(set)).
		Uint64("initial_event_nonce", params.InitialEventNonce).
		Dur("block_time", params.BlockTime).
		Msg("simulated network started")
	return n, nil
}

// Params returns the parameters the network was created with.
func (n *Network) Params() Params {
	return n.params
}

// heightAt returns the height of the block being built at t.
func (n *Network) heightAt(t time.Time) uint64 {
	return uint64(t.Sub(n.start)/n.params.BlockTime) + 1
}

// nextBlock returns the time the block following the one being built at t is committed.
func (n *Network) nextBlock(t time.Time) time.Time {
	return n.start.Add(time.Duration(n.heightAt(t)) * n.params.BlockTime)
}

// schedule registers run to be applied at. Tasks due at the same time run in registration order.
// Callers must hold the lock.
func (n *Network) schedule(at time.Time, name string, run func(at time.Time)) {
	t := task{at: at, name: name, run: run}
	i := sort.Search(len(n.tasks), func(i int) bool {
		return n.tasks[i].at.After(at)
	})
	n.tasks = append(n.tasks, task{})
	copy(n.tasks[i+1:], n.tasks[i:])
	n.tasks[i] = t
}

// advance applies every task due at or before now, in time order. Callers must hold the lock.
func (n *Network) advance(now time.Time) {
	for len(n.tasks) > 0 && !n.tasks[0].at.After(now) {
		t := n.tasks[0]
		n.tasks = n.tasks[1:]
		t.run(t.at)
	}
}

// lockAndAdvance acquires the lock and brings the state up to date. It returns the current time.
func (n *Network) lockAndAdvance() time.Time {
	n.mu.Lock()
	now := time.Now()
	n.advance(now)
	return now
}

// broadcast performs the ante checks of a transaction signed by signer, charges the fee and
// schedules deliver for the next block. Callers must hold the lock.
func (n *Network) broadcast(now time.Time, kind string, signer string, fee bridge.Fee, deliver func(at time.Time, tx *txEntry) (uint32, string)) (bridge.TxHandle, error) {
	seq := n.txSeq.Inc()
	hash := fmt.Sprintf("%X", crypto.Keccak256([]byte(fmt.Sprintf("%s/%s/%d", kind, signer, seq))))

	for _, coin := range fee.Amount {
		if err := coin.Validate(); err != nil {
			return bridge.TxHandle{}, module.NewChainRejectionErrorf(hash, codeInvalidRequest, "invalid fee: %v", err)
		}
		if err := n.debit(signer, coin.Denom, coin.Amount); err != nil {
			return bridge.TxHandle{}, module.NewChainRejectionErrorf(hash, codeInsufficientFunds, "could not pay fee: %v", err)
		}
	}

	entry := &txEntry{hash: hash, includeAt: n.nextBlock(now)}
	n.txs[hash] = entry
	n.schedule(entry.includeAt, kind, func(at time.Time) {
		code, log := deliver(at, entry)
		entry.result = &bridge.TxResult{Hash: hash, Height: n.heightAt(at) - 1, Code: code, Log: log}
		if code != 0 {
			n.log.Debug().Str("tx", hash).Str("kind", kind).Uint32("code", code).Str("log", log).Msg("transaction failed")
		}
	})
	return bridge.TxHandle{Hash: hash}, nil
}

// WaitForFinalization blocks until tx is included in a block or timeout elapses.
func (n *Network) WaitForFinalization(ctx context.Context, tx bridge.TxHandle, timeout time.Duration) (*bridge.TxResult, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		now := n.lockAndAdvance()
		entry, ok := n.txs[tx.Hash]
		var result *bridge.TxResult
		var includeAt time.Time
		if ok {
			includeAt = entry.includeAt
			if entry.result != nil {
				r := *entry.result
				result = &r
			}
		}
		n.mu.Unlock()

		if !ok {
			return nil, module.NewTransportErrorf(Endpoint, "transaction %s not found", tx.Hash)
		}
		if result != nil {
			if !result.Succeeded() {
				return result, module.NewChainRejectionError(result.Hash, result.Code, result.Log)
			}
			return result, nil
		}
		if !now.Before(deadline) {
			return nil, module.NewTransportErrorf(Endpoint, "transaction %s not included within %v", tx.Hash, timeout)
		}

		wake := includeAt
		if wake.After(deadline) {
			wake = deadline
		}
		timer := time.NewTimer(time.Until(wake))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// identity resolves a key holder of the set. Callers must hold the lock.
func (n *Network) identity(identity bridge.ValidatorIdentity) (*validatorState, error) {
	i, ok := n.set.IndexOf(identity)
	if !ok {
		return nil, fmt.Errorf("signer is not a validator of the network")
	}
	return n.validators[i], nil
}

// balance returns the stored balance, or nil if the account never held denom. Callers must hold the lock.
func (n *Network) balance(address, denom string) *uint256.Int {
	return n.balances[address][denom]
}

func (n *Network) credit(address, denom string, amount *uint256.Int) {
	byDenom, ok := n.balances[address]
	if !ok {
		byDenom = make(map[string]*uint256.Int)
		n.balances[address] = byDenom
	}
	current, ok := byDenom[denom]
	if !ok {
		current = new(uint256.Int)
		byDenom[denom] = current
	}
	current.Add(current, amount)
}

func (n *Network) debit(address, denom string, amount *uint256.Int) error {
	current := n.balance(address, denom)
	if current == nil || current.Lt(amount) {
		have := "0"
		if current != nil {
			have = current.Dec()
		}
		return fmt.Errorf("%s holds %s%s, needs %s%s", address, have, denom, amount.Dec(), denom)
	}
	current.Sub(current, amount)
	return nil
}

func (n *Network) totalPower() uint64 {
	var total uint64
	for _, v := range n.validators {
		total += v.power()
	}
	return total
}

// LastEventNonce returns the nonce of the last claim the orchestrator got included.
func (n *Network) LastEventNonce(ctx context.Context, orchestrator string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n.lockAndAdvance()
	defer n.mu.Unlock()

	i, ok := n.byOrch[orchestrator]
	if !ok {
		return 0, fmt.Errorf("%s is not a registered orchestrator", orchestrator)
	}
	if n.faults.takeQueryFailure(i) {
		return 0, module.NewTransportErrorf(Endpoint, "query of orchestrator %d failed", i)
	}
	return n.validators[i].lastEventNonce, nil
}

// Balance returns the amount of denom held by address.
func (n *Network) Balance(ctx context.Context, address string, denom string) (*uint256.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.lockAndAdvance()
	defer n.mu.Unlock()

	if b := n.balance(address, denom); b != nil {
		return new(uint256.Int).Set(b), nil
	}
	return new(uint256.Int), nil
}

// LastObservedNonce returns the nonce of the last attestation the bridge acted on.
func (n *Network) LastObservedNonce() uint64 {
	n.lockAndAdvance()
	defer n.mu.Unlock()
	return n.lastObserved
}
