package simnet

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// ethEvent is a SendToCosmos event emitted by the Gravity contract.
type ethEvent struct {
	nonce    uint64
	height   uint64
	token    common.Address
	amount   *uint256.Int
	sender   common.Address
	receiver string
}

// claim renders the event as the claim an honest orchestrator submits for it.
func (e ethEvent) claim(orchestrator string) bridge.AttestationClaim {
	return bridge.AttestationClaim{
		EventNonce:     e.nonce,
		BlockHeight:    e.height,
		TokenContract:  e.token,
		Amount:         new(uint256.Int).Set(e.amount),
		EthereumSender: e.sender,
		CosmosReceiver: e.receiver,
		Orchestrator:   orchestrator,
	}
}

// ethHeightAt returns the Ethereum block number at t. Ethereum blocks are produced at the Cosmos block time.
func (n *Network) ethHeightAt(t time.Time) uint64 {
	return n.params.EthStartHeight + uint64(t.Sub(n.start)/n.params.BlockTime)
}

// LatestBlockHeight returns the current Ethereum block number.
func (n *Network) LatestBlockHeight(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	now := n.lockAndAdvance()
	defer n.mu.Unlock()
	return n.ethHeightAt(now), nil
}

// SendToCosmos emits a deposit event. Orchestrators relay it after the configured relay delay.
func (n *Network) SendToCosmos(ctx context.Context, sender *ecdsa.PrivateKey, token common.Address, destination string, amount *uint256.Int) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if sender == nil {
		return common.Hash{}, fmt.Errorf("missing sender key")
	}
	if token == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("missing token contract")
	}
	if amount == nil || amount.IsZero() {
		return common.Hash{}, fmt.Errorf("deposit amount must be positive")
	}
	if err := bridge.ValidateCosmosAddress(destination, n.params.AddressPrefix); err != nil {
		return common.Hash{}, fmt.Errorf("invalid destination: %w", err)
	}

	now := n.lockAndAdvance()
	defer n.mu.Unlock()

	n.ethNonce++
	event := ethEvent{
		nonce:    n.ethNonce,
		height:   n.ethHeightAt(now),
		token:    token,
		amount:   new(uint256.Int).Set(amount),
		sender:   crypto.PubkeyToAddress(sender.PublicKey),
		receiver: destination,
	}
	n.ethEvents = append(n.ethEvents, event)
	n.schedule(now.Add(n.params.RelayDelay), "relay", n.relay)

	n.log.Info().
		Uint64("event_nonce", event.nonce).
		Uint64("eth_height", event.height).
		Str("receiver", destination).
		Str("amount", amount.Dec()).
		Msg("send to cosmos event emitted")

	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], event.nonce)
	return crypto.Keccak256Hash(event.sender.Bytes(), []byte(destination), nonce[:]), nil
}

// EthereumEventNonce returns the nonce of the last event emitted by the Gravity contract.
func (n *Network) EthereumEventNonce() uint64 {
	n.lockAndAdvance()
	defer n.mu.Unlock()
	return n.ethNonce
}
