package client

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/unittest"
)

// fakeEthBackend mines every transaction it receives immediately. Calls to methods it does not
// override panic through the nil embedded interface.
type fakeEthBackend struct {
	ethBackend

	mu         sync.Mutex
	height     uint64
	nonces     map[common.Address]uint64
	sent       []*types.Transaction
	revertTo   map[common.Address]bool
	eventNonce uint64
	chainID    *big.Int
	failBlocks bool
}

func newFakeEthBackend(chainID *big.Int) *fakeEthBackend {
	return &fakeEthBackend{
		height:   100,
		nonces:   make(map[common.Address]uint64),
		revertTo: make(map[common.Address]bool),
		chainID:  chainID,
	}
}

func (b *fakeEthBackend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failBlocks {
		return 0, errors.New("connection refused")
	}
	return b.height, nil
}

func (b *fakeEthBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &types.Header{Number: new(big.Int).SetUint64(b.height)}, nil
}

func (b *fakeEthBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeEthBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeEthBackend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonces[account], nil
}

func (b *fakeEthBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (b *fakeEthBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	from, err := types.Sender(types.LatestSignerForChainID(b.chainID), tx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces[from]++
	b.height++
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeEthBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, tx := range b.sent {
		if tx.Hash() != hash {
			continue
		}
		status := types.ReceiptStatusSuccessful
		if b.revertTo[*tx.To()] {
			status = types.ReceiptStatusFailed
		}
		return &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(int64(101 + i))}, nil
	}
	return nil, ethereum.NotFound
}

func (b *fakeEthBackend) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return common.LeftPadBytes(new(big.Int).SetUint64(b.eventNonce).Bytes(), 32), nil
}

func (b *fakeEthBackend) transactions() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

func newTestEthereumClient(t *testing.T, backend *fakeEthBackend, gravity common.Address) *EthereumClient {
	c, err := newEthereumClient(unittest.Logger(), "fake", backend, backend.chainID, gravity, time.Second)
	require.NoError(t, err)
	return c
}

func TestEthereumClient_SendToCosmos(t *testing.T) {
	chainID := big.NewInt(15)
	backend := newFakeEthBackend(chainID)
	gravity := unittest.EthAddressFixture()
	token := unittest.EthAddressFixture()
	c := newTestEthereumClient(t, backend, gravity)

	user := unittest.BridgeUserFixture(t)
	receiver, err := user.CosmosAddress(bridge.DefaultAddressPrefix)
	require.NoError(t, err)

	hash, err := c.SendToCosmos(context.Background(), user.EthKey, token, receiver, bridge.OneEther())
	require.NoError(t, err)

	sent := backend.transactions()
	require.Len(t, sent, 2)
	for _, tx := range sent {
		from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
		require.NoError(t, err)
		assert.Equal(t, user.EthAddress(), from)
	}

	approve := sent[0]
	assert.Equal(t, token, *approve.To())
	method, err := c.erc20ABI.MethodById(approve.Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "approve", method.Name)
	args, err := method.Inputs.Unpack(approve.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, gravity, args[0])
	assert.Equal(t, 0, bridge.OneEther().ToBig().Cmp(args[1].(*big.Int)))

	deposit := sent[1]
	assert.Equal(t, hash, deposit.Hash())
	assert.Equal(t, gravity, *deposit.To())
	method, err = c.gravityABI.MethodById(deposit.Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "sendToCosmos", method.Name)
	args, err = method.Inputs.Unpack(deposit.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, token, args[0])
	expected, err := destinationBytes(receiver)
	require.NoError(t, err)
	assert.Equal(t, expected, args[1])
	assert.Equal(t, 0, bridge.OneEther().ToBig().Cmp(args[2].(*big.Int)))
}

func TestEthereumClient_SendToCosmos_Reverted(t *testing.T) {
	backend := newFakeEthBackend(big.NewInt(15))
	gravity := unittest.EthAddressFixture()
	backend.revertTo[gravity] = true
	c := newTestEthereumClient(t, backend, gravity)

	user := unittest.BridgeUserFixture(t)
	receiver, err := user.CosmosAddress(bridge.DefaultAddressPrefix)
	require.NoError(t, err)

	_, err = c.SendToCosmos(context.Background(), user.EthKey, unittest.EthAddressFixture(), receiver, uint256.NewInt(1))
	require.Error(t, err)
	assert.True(t, module.IsChainRejectionError(err))
	assert.Len(t, backend.transactions(), 2)
}

func TestEthereumClient_SendToCosmos_Invalid(t *testing.T) {
	backend := newFakeEthBackend(big.NewInt(15))
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	unconfigured := newTestEthereumClient(t, backend, common.Address{})
	_, err = unconfigured.SendToCosmos(context.Background(), key, unittest.EthAddressFixture(), "cosmos1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqnrql8a", uint256.NewInt(1))
	assert.Error(t, err)

	c := newTestEthereumClient(t, backend, unittest.EthAddressFixture())
	_, err = c.SendToCosmos(context.Background(), key, unittest.EthAddressFixture(), "not bech32", uint256.NewInt(1))
	assert.Error(t, err)
	_, err = c.SendToCosmos(context.Background(), key, unittest.EthAddressFixture(), "cosmos1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqnrql8a", new(uint256.Int))
	assert.Error(t, err)

	assert.Empty(t, backend.transactions())
}

// TestEthereumClient_WaitMined_Cancelled checks that only the mine timeout makes an unmined
// transaction a transport failure, not the caller giving up.
func TestEthereumClient_WaitMined_Cancelled(t *testing.T) {
	backend := newFakeEthBackend(big.NewInt(15))
	unmined := types.NewTx(&types.LegacyTx{Nonce: 7, Gas: 21_000, GasPrice: big.NewInt(1)})

	c, err := newEthereumClient(unittest.Logger(), "fake", backend, backend.chainID, unittest.EthAddressFixture(), 50*time.Millisecond)
	require.NoError(t, err)
	err = c.waitMined(context.Background(), unmined)
	require.Error(t, err)
	assert.True(t, module.IsTransportError(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = newTestEthereumClient(t, backend, unittest.EthAddressFixture()).waitMined(ctx, unmined)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, module.IsTransportError(err))
}

func TestEthereumClient_LatestBlockHeight(t *testing.T) {
	backend := newFakeEthBackend(big.NewInt(15))
	c := newTestEthereumClient(t, backend, unittest.EthAddressFixture())

	height, err := c.LatestBlockHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), height)

	backend.failBlocks = true
	_, err = c.LatestBlockHeight(context.Background())
	assert.True(t, module.IsTransportError(err))
}

func TestEthereumClient_EventNonce(t *testing.T) {
	backend := newFakeEthBackend(big.NewInt(15))
	backend.eventNonce = 42
	c := newTestEthereumClient(t, backend, unittest.EthAddressFixture())

	nonce, err := c.EventNonce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(42), nonce)
}

func TestDestinationBytes(t *testing.T) {
	user := unittest.BridgeUserFixture(t)
	receiver, err := user.CosmosAddress(bridge.DefaultAddressPrefix)
	require.NoError(t, err)
	_, raw, err := bridge.ParseBech32(receiver)
	require.NoError(t, err)

	dest, err := destinationBytes(receiver)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 12), dest[:12])
	assert.Equal(t, raw, dest[12:])
}
