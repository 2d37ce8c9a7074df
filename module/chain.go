package module

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// ChainQuerier reads bridge state from the Cosmos chain.
// All methods return a TransportError when the chain cannot be reached or the response cannot be decoded.
type ChainQuerier interface {
	// LastEventNonce returns the nonce of the last event the given orchestrator attested to.
	LastEventNonce(ctx context.Context, orchestrator string) (uint64, error)

	// Balance returns the amount of denom held by address. Unknown denoms have a zero balance.
	Balance(ctx context.Context, address string, denom string) (*uint256.Int, error)
}

// TxFinalizer waits for a broadcast transaction to be included in a block.
type TxFinalizer interface {
	// WaitForFinalization blocks until tx is included or timeout elapses.
	// Expected errors:
	//   - ChainRejectionError if the transaction was included with a non-zero code; the result is returned alongside
	//   - TransportError if inclusion could not be observed before the timeout
	//   - an error wrapping ctx.Err() if ctx was cancelled first
	WaitForFinalization(ctx context.Context, tx bridge.TxHandle, timeout time.Duration) (*bridge.TxResult, error)
}

// ClaimSubmitter broadcasts orchestrator claims.
type ClaimSubmitter interface {
	TxFinalizer

	// SubmitClaim broadcasts claim signed by the orchestrator key of signer. It never retries.
	// Expected errors:
	//   - ChainRejectionError if the claim fails mempool checks
	//   - TransportError if the broadcast could not be delivered
	SubmitClaim(ctx context.Context, claim bridge.AttestationClaim, signer bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error)
}

// Governance submits and votes on proposals.
type Governance interface {
	TxFinalizer

	// SubmitProposal submits content with the initial deposit from proposer and returns the assigned id.
	SubmitProposal(ctx context.Context, content bridge.ParameterChangeProposal, deposit bridge.Coin, proposer bridge.ValidatorIdentity, fee bridge.Fee) (bridge.ProposalID, error)

	// VoteProposal broadcasts a vote of voter's validator key.
	VoteProposal(ctx context.Context, id bridge.ProposalID, option bridge.VoteOption, voter bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error)

	// ProposalsInVotingPeriod lists the proposals currently accepting votes.
	ProposalsInVotingPeriod(ctx context.Context) ([]bridge.ProposalID, error)
}

// Staking moves stake between validators.
type Staking interface {
	TxFinalizer

	// Delegate bonds amount from delegator's validator account to the validator with operator address valoper.
	Delegate(ctx context.Context, valoper string, amount bridge.Coin, delegator bridge.ValidatorIdentity, fee bridge.Fee) (bridge.TxHandle, error)

	// ValidatorPowers returns the consensus power of every bonded validator.
	ValidatorPowers(ctx context.Context) ([]bridge.ValidatorPower, error)
}

// EthereumBridge sends deposits through the Gravity contract.
type EthereumBridge interface {
	// LatestBlockHeight returns the current Ethereum block number.
	LatestBlockHeight(ctx context.Context) (uint64, error)

	// SendToCosmos locks amount of token in the Gravity contract for destination and returns the
	// Ethereum transaction hash once it is mined.
	SendToCosmos(ctx context.Context, sender *ecdsa.PrivateKey, token common.Address, destination string, amount *uint256.Int) (common.Hash, error)
}

// BridgeNetwork bundles every collaborator a scenario drives.
type BridgeNetwork interface {
	ChainQuerier
	ClaimSubmitter
	Governance
	Staking
	EthereumBridge
}
