package bridge

import (
	"fmt"
)

// TxHandle identifies a broadcast transaction whose finalization has not been observed yet.
type TxHandle struct {
	Hash string
}

func (h TxHandle) String() string {
	return h.Hash
}

// TxResult is the outcome of a finalized transaction. A non-zero Code means the chain rejected it.
type TxResult struct {
	Hash   string
	Height uint64
	Code   uint32
	Log    string
}

// Succeeded reports whether the transaction was included without error.
func (r TxResult) Succeeded() bool {
	return r.Code == 0
}

// ProposalID is the governance proposal number assigned by the chain.
type ProposalID uint64

func (id ProposalID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// VoteOption is a governance vote choice.
type VoteOption int

const (
	VoteUnspecified VoteOption = iota
	VoteYes
	VoteAbstain
	VoteNo
	VoteNoWithVeto
)

func (o VoteOption) String() string {
	switch o {
	case VoteYes:
		return "yes"
	case VoteAbstain:
		return "abstain"
	case VoteNo:
		return "no"
	case VoteNoWithVeto:
		return "no_with_veto"
	default:
		return "unspecified"
	}
}

// ProposalStatus is the lifecycle stage of a governance proposal.
type ProposalStatus int

const (
	ProposalStatusUnspecified ProposalStatus = iota
	ProposalStatusDepositPeriod
	ProposalStatusVotingPeriod
	ProposalStatusPassed
	ProposalStatusRejected
	ProposalStatusFailed
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusDepositPeriod:
		return "deposit_period"
	case ProposalStatusVotingPeriod:
		return "voting_period"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusRejected:
		return "rejected"
	case ProposalStatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// ValidatorPower is the consensus power of a bonded validator.
type ValidatorPower struct {
	OperatorAddress string
	Power           uint64
}

// TotalPower sums the power of every validator.
func TotalPower(powers []ValidatorPower) uint64 {
	var total uint64
	for _, p := range powers {
		total += p.Power
	}
	return total
}
