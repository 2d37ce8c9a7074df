package bridge

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// ClaimTypeURL is the Cosmos message type of a deposit claim.
const ClaimTypeURL = "/gravity.v1.MsgSendToCosmosClaim"

// AttestationClaim is one orchestrator's assertion that a SendToCosmos event happened on Ethereum.
// Claims are values: a fault injection builds one per orchestrator from a shared template and never
// mutates it afterwards.
type AttestationClaim struct {
	EventNonce     uint64
	BlockHeight    uint64
	TokenContract  common.Address
	Amount         *uint256.Int
	EthereumSender common.Address
	CosmosReceiver string
	Orchestrator   string
}

// WithOrchestrator returns a copy of the claim submitted by the given orchestrator.
func (c AttestationClaim) WithOrchestrator(orchestrator string) AttestationClaim {
	claim := c
	if c.Amount != nil {
		claim.Amount = new(uint256.Int).Set(c.Amount)
	}
	claim.Orchestrator = orchestrator
	return claim
}

// ValidateBasic performs the stateless checks the gravity module applies to a claim message.
func (c AttestationClaim) ValidateBasic() error {
	if c.EventNonce == 0 {
		return fmt.Errorf("event nonce must be positive")
	}
	if c.TokenContract == (common.Address{}) {
		return fmt.Errorf("empty token contract")
	}
	if c.Amount == nil {
		return fmt.Errorf("nil amount")
	}
	if c.CosmosReceiver == "" {
		return fmt.Errorf("empty cosmos receiver")
	}
	if c.Orchestrator == "" {
		return fmt.Errorf("empty orchestrator")
	}
	return nil
}

// ClaimHash identifies the claimed event independent of who submitted it. Orchestrators agreeing on
// an event produce identical hashes and their attestations are tallied together.
func (c AttestationClaim) ClaimHash() common.Hash {
	var buf []byte
	buf = binary.BigEndian.AppendUint64(buf, c.EventNonce)
	buf = binary.BigEndian.AppendUint64(buf, c.BlockHeight)
	buf = append(buf, c.TokenContract.Bytes()...)
	amount := new(uint256.Int)
	if c.Amount != nil {
		amount = c.Amount
	}
	amountBytes := amount.Bytes32()
	buf = append(buf, amountBytes[:]...)
	buf = append(buf, c.EthereumSender.Bytes()...)
	buf = append(buf, []byte(c.CosmosReceiver)...)
	return crypto.Keccak256Hash(buf)
}

func (c AttestationClaim) String() string {
	amount := "0"
	if c.Amount != nil {
		amount = c.Amount.Dec()
	}
	return fmt.Sprintf("claim(nonce=%d, height=%d, token=%s, amount=%s, sender=%s, receiver=%s, orchestrator=%s)",
		c.EventNonce, c.BlockHeight, c.TokenContract.Hex(), amount, c.EthereumSender.Hex(), c.CosmosReceiver, c.Orchestrator)
}
