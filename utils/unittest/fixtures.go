package unittest

import (
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// Uint64InRange returns a uint64 value drawn from the uniform random distribution [min,max].
func Uint64InRange(min, max uint64) uint64 {
	return min + uint64(rand.Intn(int(max)+1-int(min)))
}

// EthAddressFixture returns a random Ethereum address.
func EthAddressFixture() common.Address {
	var addr common.Address
	_, _ = rand.Read(addr[:])
	return addr
}

// TxHandleFixture returns a handle with a random hash.
func TxHandleFixture() bridge.TxHandle {
	return bridge.TxHandle{Hash: uuid.New().String()}
}

// TxResultFixture returns a successful result for tx.
func TxResultFixture(tx bridge.TxHandle) *bridge.TxResult {
	return &bridge.TxResult{Hash: tx.Hash, Height: Uint64InRange(1, 1000)}
}

// ValidatorSetFixture generates a set of n validators with fresh keys.
func ValidatorSetFixture(t testing.TB, n int) bridge.ValidatorSet {
	set, err := bridge.GenerateValidatorSet(n)
	require.NoError(t, err)
	return set
}

// BridgeUserFixture generates a user with fresh keys.
func BridgeUserFixture(t testing.TB) bridge.BridgeUser {
	user, err := bridge.GenerateBridgeUser()
	require.NoError(t, err)
	return user
}

func WithEventNonce(nonce uint64) func(*bridge.AttestationClaim) {
	return func(claim *bridge.AttestationClaim) {
		claim.EventNonce = nonce
	}
}

// ClaimTemplateFixture returns a deposit claim without an orchestrator, as used for fault injection.
func ClaimTemplateFixture(t testing.TB, opts ...func(*bridge.AttestationClaim)) bridge.AttestationClaim {
	user := BridgeUserFixture(t)
	receiver, err := user.CosmosAddress(bridge.DefaultAddressPrefix)
	require.NoError(t, err)

	claim := bridge.AttestationClaim{
		EventNonce:     Uint64InRange(1, 100),
		BlockHeight:    Uint64InRange(100, 10_000),
		TokenContract:  EthAddressFixture(),
		Amount:         bridge.OneEther(),
		EthereumSender: user.EthAddress(),
		CosmosReceiver: receiver,
	}
	for _, apply := range opts {
		apply(&claim)
	}
	return claim
}

// FeeFixture returns a small stake fee.
func FeeFixture() bridge.Fee {
	return bridge.NewFee(bridge.NewCoin("stake", 1), 500_000)
}
