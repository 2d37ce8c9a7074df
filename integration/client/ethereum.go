package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
)

const erc20ABI = `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const gravityABI = `[
	{"type":"function","name":"sendToCosmos","stateMutability":"nonpayable",
	 "inputs":[{"name":"_tokenContract","type":"address"},{"name":"_destination","type":"bytes32"},{"name":"_amount","type":"uint256"}],
	 "outputs":[]},
	{"type":"function","name":"state_lastEventNonce","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

// ethBackend is the part of an Ethereum JSON-RPC client the bridge client uses.
type ethBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	BlockNumber(ctx context.Context) (uint64, error)
}

// EthereumClient sends deposits through the Gravity contract.
type EthereumClient struct {
	log         zerolog.Logger
	endpoint    string
	backend     ethBackend
	chainID     *big.Int
	gravity     common.Address
	erc20ABI    abi.ABI
	gravityABI  abi.ABI
	mineTimeout time.Duration
	close       func()
}

var _ module.EthereumBridge = (*EthereumClient)(nil)

// NewEthereumClient connects to the JSON-RPC endpoint cfg.EthRPC. Transactions are given
// mineTimeout to be mined.
func NewEthereumClient(ctx context.Context, log zerolog.Logger, cfg config.ChainConfig, mineTimeout time.Duration) (*EthereumClient, error) {
	rpc, err := ethclient.DialContext(ctx, cfg.EthRPC)
	if err != nil {
		return nil, module.NewTransportError(cfg.EthRPC, fmt.Errorf("could not dial: %w", err))
	}
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		rpc.Close()
		return nil, module.NewTransportError(cfg.EthRPC, fmt.Errorf("could not query chain id: %w", err))
	}
	c, err := newEthereumClient(log, cfg.EthRPC, rpc, chainID, cfg.Gravity(), mineTimeout)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	c.close = rpc.Close
	return c, nil
}

func newEthereumClient(log zerolog.Logger, endpoint string, backend ethBackend, chainID *big.Int, gravity common.Address, mineTimeout time.Duration) (*EthereumClient, error) {
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("could not parse erc20 abi: %w", err)
	}
	gravityContract, err := abi.JSON(strings.NewReader(gravityABI))
	if err != nil {
		return nil, fmt.Errorf("could not parse gravity abi: %w", err)
	}
	return &EthereumClient{
		log:         log.With().Str("component", "ethereum_client").Str("endpoint", endpoint).Logger(),
		endpoint:    endpoint,
		backend:     backend,
		chainID:     chainID,
		gravity:     gravity,
		erc20ABI:    erc20,
		gravityABI:  gravityContract,
		mineTimeout: mineTimeout,
		close:       func() {},
	}, nil
}

// Close closes the RPC connection.
func (c *EthereumClient) Close() {
	c.close()
}

// LatestBlockHeight returns the current Ethereum block number.
func (c *EthereumClient) LatestBlockHeight(ctx context.Context) (uint64, error) {
	height, err := c.backend.BlockNumber(ctx)
	if err != nil {
		return 0, module.NewTransportError(c.endpoint, fmt.Errorf("could not query block number: %w", err))
	}
	return height, nil
}

// EventNonce returns the nonce of the last event emitted by the Gravity contract.
func (c *EthereumClient) EventNonce(ctx context.Context) (uint64, error) {
	if c.gravity == (common.Address{}) {
		return 0, fmt.Errorf("gravity contract address not configured")
	}
	contract := bind.NewBoundContract(c.gravity, c.gravityABI, c.backend, c.backend, c.backend)
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "state_lastEventNonce"); err != nil {
		return 0, module.NewTransportError(c.endpoint, fmt.Errorf("could not query event nonce: %w", err))
	}
	nonce, ok := out[0].(*big.Int)
	if !ok || !nonce.IsUint64() {
		return 0, module.NewTransportError(c.endpoint, fmt.Errorf("unexpected event nonce %v", out[0]))
	}
	return nonce.Uint64(), nil
}

// SendToCosmos approves the Gravity contract to spend amount of token held by sender, then locks it
// for destination. It returns the hash of the sendToCosmos transaction once both are mined.
// Expected errors:
//   - module.ChainRejectionError if a transaction reverted
//   - module.TransportError if the node could not be reached or a transaction was not mined in time
func (c *EthereumClient) SendToCosmos(ctx context.Context, sender *ecdsa.PrivateKey, token common.Address, destination string, amount *uint256.Int) (common.Hash, error) {
	if c.gravity == (common.Address{}) {
		return common.Hash{}, fmt.Errorf("gravity contract address not configured")
	}
	if amount == nil || amount.IsZero() {
		return common.Hash{}, fmt.Errorf("deposit amount must be positive")
	}
	dest, err := destinationBytes(destination)
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(sender, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("could not create transactor: %w", err)
	}
	opts.Context = ctx

	log := c.log.With().
		Str("sender", crypto.PubkeyToAddress(sender.PublicKey).Hex()).
		Str("token", token.Hex()).
		Str("destination", destination).
		Str("amount", amount.Dec()).
		Logger()

	erc20 := bind.NewBoundContract(token, c.erc20ABI, c.backend, c.backend, c.backend)
	approve, err := erc20.Transact(opts, "approve", c.gravity, amount.ToBig())
	if err != nil {
		return common.Hash{}, module.NewTransportError(c.endpoint, fmt.Errorf("could not send approve: %w", err))
	}
	if err := c.waitMined(ctx, approve); err != nil {
		return common.Hash{}, fmt.Errorf("approve of %s failed: %w", approve.Hash().Hex(), err)
	}
	log.Debug().Str("tx", approve.Hash().Hex()).Msg("gravity contract approved")

	gravity := bind.NewBoundContract(c.gravity, c.gravityABI, c.backend, c.backend, c.backend)
	send, err := gravity.Transact(opts, "sendToCosmos", token, dest, amount.ToBig())
	if err != nil {
		return common.Hash{}, module.NewTransportError(c.endpoint, fmt.Errorf("could not send deposit: %w", err))
	}
	if err := c.waitMined(ctx, send); err != nil {
		return common.Hash{}, fmt.Errorf("deposit %s failed: %w", send.Hash().Hex(), err)
	}
	log.Info().Str("tx", send.Hash().Hex()).Msg("deposit sent to cosmos")
	return send.Hash(), nil
}

// waitMined waits up to the mine timeout for tx. Only running out of that timeout is a transport
// failure; a cancelled ctx is returned as is.
func (c *EthereumClient) waitMined(ctx context.Context, tx *types.Transaction) error {
	mineCtx, cancel := context.WithTimeout(ctx, c.mineTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(mineCtx, c.backend, tx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("stopped waiting for transaction: %w", ctxErr)
		}
		return module.NewTransportError(c.endpoint, fmt.Errorf("transaction not mined: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return module.NewChainRejectionErrorf(tx.Hash().Hex(), uint32(receipt.Status), "reverted in block %v", receipt.BlockNumber)
	}
	return nil
}

// destinationBytes left pads the account bytes of a bech32 address to 32 bytes.
func destinationBytes(destination string) ([32]byte, error) {
	var dest [32]byte
	_, addr, err := bridge.ParseBech32(destination)
	if err != nil {
		return dest, fmt.Errorf("invalid destination %q: %w", destination, err)
	}
	if len(addr) > len(dest) {
		return dest, fmt.Errorf("destination %q is longer than 32 bytes", destination)
	}
	copy(dest[len(dest)-len(addr):], addr)
	return dest, nil
}
