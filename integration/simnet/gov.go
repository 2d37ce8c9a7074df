package simnet

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/holiman/uint256"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

// governance tally parameters of the test chains
const (
	quorumPermille    = 334
	thresholdPermille = 500
	vetoPermille      = 334
)

type proposal struct {
	id        bridge.ProposalID
	content   bridge.ParameterChangeProposal
	deposit   bridge.Coin
	proposer  string
	status    bridge.ProposalStatus
	votingEnd time.Time
	votes     map[int]bridge.VoteOption
}

// SubmitProposal submits content with the initial deposit of proposer. It blocks until the
// submission is included and returns the id assigned by the chain.
func (n *Network) SubmitProposal(ctx context.Context, content bridge.ParameterChangeProposal, deposit bridge.Coin, proposer bridge.ValidatorIdentity, fee bridge.Fee) (bridge.ProposalID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tx, err := n.submitProposal(content, deposit, proposer, fee)
	if err != nil {
		return 0, err
	}
	if _, err := n.WaitForFinalization(ctx, tx, n.params.inclusionTimeout()); err != nil {
		return 0, fmt.Errorf("proposal submission %s failed: %w", tx.Hash, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	return n.txs[tx.Hash].proposal, nil
}

func (n *Network) submitProposal(content bridge.ParameterChangeProposal, deposit bridge.Coin, proposer bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error) {
	now := n.lockAndAdvance()
	defer n.mu.Unlock()

	v, err := n.identity(proposer)
	if err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeUnauthorized, "%v", err)
	}
	if err := deposit.Validate(); err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidDeposit, "invalid deposit: %v", err)
	}
	if len(content.Changes) == 0 {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "proposal changes no parameters")
	}
	if _, _, _, err := bridge.ParseRecovery(content); err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "invalid parameter change: %v", err)
	}

	return n.broadcast(now, "submit-proposal", v.account, fee, func(at time.Time, tx *txEntry) (uint32, string) {
		if deposit.Denom != n.params.StakeDenom {
			return codeInvalidDeposit, fmt.Sprintf("deposit denom %s, expected %s", deposit.Denom, n.params.StakeDenom)
		}
		if deposit.Amount.Lt(uint256.NewInt(n.params.MinDeposit)) {
			return codeInvalidDeposit, fmt.Sprintf("deposit %s below minimum %d", deposit, n.params.MinDeposit)
		}
		if err := n.debit(v.account, deposit.Denom, deposit.Amount); err != nil {
			return codeInsufficientFunds, err.Error()
		}

		p := &proposal{
			id:        n.nextProposal,
			content:   content,
			deposit:   bridge.Coin{Denom: deposit.Denom, Amount: new(uint256.Int).Set(deposit.Amount)},
			proposer:  v.account,
			status:    bridge.ProposalStatusVotingPeriod,
			votingEnd: at.Add(n.params.VotingPeriod),
			votes:     make(map[int]bridge.VoteOption),
		}
		n.nextProposal++
		n.proposals[p.id] = p
		tx.proposal = p.id
		n.schedule(p.votingEnd, "tally", func(at time.Time) {
			n.tally(p)
		})

		n.log.Info().Uint64("proposal", uint64(p.id)).Time("voting_end", p.votingEnd).Msg("proposal entered voting period")
		return 0, ""
	})
}

// VoteProposal broadcasts a vote of voter's validator account.
func (n *Network) VoteProposal(ctx context.Context, id bridge.ProposalID, option bridge.VoteOption, voter bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error) {
	if err := ctx.Err(); err != nil {
		return bridge.TxHandle{}, err
	}
	now := n.lockAndAdvance()
	defer n.mu.Unlock()

	v, err := n.identity(voter)
	if err != nil {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeUnauthorized, "%v", err)
	}
	if option == bridge.VoteUnspecified {
		return bridge.TxHandle{}, module.NewChainRejectionErrorf("", codeInvalidRequest, "unspecified vote option")
	}

	return n.broadcast(now, "vote", v.account, fee, func(at time.Time, _ *txEntry) (uint32, string) {
		if n.faults.rejectVotes[v.index] {
			return codeFault, fmt.Sprintf("votes of validator %d are rejected", v.index)
		}
		p, ok := n.proposals[id]
		if !ok || p.status != bridge.ProposalStatusVotingPeriod || !at.Before(p.votingEnd) {
			return codeInactiveProposal, fmt.Sprintf("inactive proposal %d", id)
		}
		p.votes[v.index] = option
		return 0, ""
	})
}

// ProposalsInVotingPeriod lists the proposals accepting votes, in id order.
func (n *Network) ProposalsInVotingPeriod(ctx context.Context) ([]bridge.ProposalID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.lockAndAdvance()
	defer n.mu.Unlock()

	var ids []bridge.ProposalID
	for id, p := range n.proposals {
		if p.status == bridge.ProposalStatusVotingPeriod {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ProposalStatus returns the lifecycle stage of proposal id.
func (n *Network) ProposalStatus(id bridge.ProposalID) (bridge.ProposalStatus, error) {
	n.lockAndAdvance()
	defer n.mu.Unlock()

	p, ok := n.proposals[id]
	if !ok {
		return bridge.ProposalStatusUnspecified, fmt.Errorf("unknown proposal %d", id)
	}
	return p.status, nil
}

// tally closes the voting period of p. A proposal passes when the voting power that voted reaches
// the quorum, vetoes stay below a third and yes votes are a majority of the non abstaining power.
// Callers must hold the lock.
func (n *Network) tally(p *proposal) {
	total := n.totalPower()
	var voted, yes, abstain, veto uint64
	for i, option := range p.votes {
		power := n.validators[i].power()
		voted += power
		switch option {
		case bridge.VoteYes:
			yes += power
		case bridge.VoteAbstain:
			abstain += power
		case bridge.VoteNoWithVeto:
			veto += power
		}
	}

	refund := true
	switch {
	case total == 0 || voted*1000 < total*quorumPermille:
		p.status = bridge.ProposalStatusRejected
		refund = false
	case veto*1000 > voted*vetoPermille:
		p.status = bridge.ProposalStatusRejected
		refund = false
	case yes*1000 > (voted-abstain)*thresholdPermille:
		p.status = bridge.ProposalStatusPassed
	default:
		p.status = bridge.ProposalStatusRejected
	}
	if refund {
		n.credit(p.proposer, p.deposit.Denom, p.deposit.Amount)
	}

	n.log.Info().
		Uint64("proposal", uint64(p.id)).
		Str("status", p.status.String()).
		Uint64("voted_power", voted).
		Uint64("yes_power", yes).
		Uint64("total_power", total).
		Msg("proposal tallied")

	if p.status == bridge.ProposalStatusPassed {
		n.execute(p)
	}
}

// execute applies the parameter changes of a passed proposal. Callers must hold the lock.
func (n *Network) execute(p *proposal) {
	reset, nonce, ok, err := bridge.ParseRecovery(p.content)
	if err != nil {
		p.status = bridge.ProposalStatusFailed
		n.log.Error().Err(err).Uint64("proposal", uint64(p.id)).Msg("could not apply parameter change")
		return
	}
	if ok && reset {
		n.resetBridge(nonce)
	}
}
