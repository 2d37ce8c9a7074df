package bridge

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// GravityDenomPrefix is the prefix of every denom minted by the gravity module for a bridged ERC20.
	GravityDenomPrefix = "gravity"
)

// Coin is an amount of a single Cosmos denom.
type Coin struct {
	Denom  string
	Amount *uint256.Int
}

// NewCoin returns a coin of the given denom holding amount.
func NewCoin(denom string, amount uint64) Coin {
	return Coin{Denom: denom, Amount: uint256.NewInt(amount)}
}

func (c Coin) String() string {
	if c.Amount == nil {
		return "0" + c.Denom
	}
	return c.Amount.Dec() + c.Denom
}

// Validate checks that the coin has a denom and a non-nil amount.
func (c Coin) Validate() error {
	if c.Denom == "" {
		return fmt.Errorf("empty denom")
	}
	if c.Amount == nil {
		return fmt.Errorf("nil amount for denom %s", c.Denom)
	}
	return nil
}

// Fee is attached to every transaction the scenario broadcasts.
type Fee struct {
	Amount   []Coin
	GasLimit uint64
}

// NewFee returns a single-coin fee with the given gas limit.
func NewFee(coin Coin, gasLimit uint64) Fee {
	return Fee{Amount: []Coin{coin}, GasLimit: gasLimit}
}

// GravityDenom returns the Cosmos denom the gravity module mints for deposits of the given ERC20.
func GravityDenom(tokenContract common.Address) string {
	return GravityDenomPrefix + tokenContract.Hex()
}

// GravityDenomToERC20 parses the token contract back out of a gravity denom.
func GravityDenomToERC20(denom string) (common.Address, error) {
	if !strings.HasPrefix(denom, GravityDenomPrefix) {
		return common.Address{}, fmt.Errorf("denom prefix of %s not equal to expected %s", denom, GravityDenomPrefix)
	}
	hex := strings.TrimPrefix(denom, GravityDenomPrefix)
	if !common.IsHexAddress(hex) || len(hex) != 2+2*common.AddressLength {
		return common.Address{}, fmt.Errorf("denom %s does not carry an ethereum contract address", denom)
	}
	return common.HexToAddress(hex), nil
}

// OneEther returns 10^18, the amount used for injected claims.
func OneEther() *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
}
