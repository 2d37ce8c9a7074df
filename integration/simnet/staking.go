package simnet

import (
	"context"
	"fmt"
	"time"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

// Delegate bonds amount from delegator's validator account to the validator operating valoper.
func (n *Network) Delegate(ctx context.Context, valoper string, amount bridge.Coin, delegator bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return bridge.TxHandle{}, err
	}
	now := n.lockAndAdvance()
	defer n.mu.Unlock()

	v, err := n.identity(delegator)
	if err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeUnauthorized, "%v", err)
	}
	target, ok := n.byValoper[valoper]
	if !ok {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "unknown validator %s", valoper)
	}
	if err := amount.Validate(); err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "invalid amount: %v", err)
	}
	if amount.Denom != n.params.StakeDenom || !amount.Amount.IsUint64() || amount.Amount.IsZero() {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "invalid delegation amount %s", amount)
	}

	return n.broadcast(now, "delegate", v.account, fee, func(at time.Time, _ *txEntry) (uint32, string) {
		if err := n.debit(v.account, amount.Denom, amount.Amount); err != nil {
			return codeInsufficientFunds, err.Error()
		}
		n.validators[target].tokens += amount.Amount.Uint64()
		n.log.Debug().
			Int("delegator", v.index).
			Int("validator", target).
			Str("amount", amount.String()).
			Msg("delegation included")
		return 0, ""
	})
}

// ValidatorPowers returns the consensus power of every validator, in validator set order.
func (n *Network) ValidatorPowers(ctx context.Context) ([]bridge.ValidatorPower, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.lockAndAdvance()
	defer n.mu.Unlock()

	powers := make([]bridge.ValidatorPower, 0, len(n.validators))
	for _, v := range n.validators {
		powers = append(powers, bridge.ValidatorPower{OperatorAddress: v.operator, Power: v.power()})
	}
	return powers, nil
}

// OperatorIndex returns the validator index of an operator address.
func (n *Network) OperatorIndex(valoper string) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	i, ok := n.byValoper[valoper]
	if !ok {
		return 0, fmt.Errorf("unknown validator %s", valoper)
	}
	return i, nil
}
