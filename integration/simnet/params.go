package simnet

import (
	"time"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
)

// PowerReduction converts bonded tokens into consensus power.
const PowerReduction = 1_000_000

// Params configure the simulated chain. All timing is wall clock based.
type Params struct {
	BlockTime    time.Duration
	RelayDelay   time.Duration
	VotingPeriod time.Duration

	// InitialEventNonce is the nonce every orchestrator attested to, and the bridge observed, at genesis.
	InitialEventNonce uint64
	EthStartHeight    uint64

	StartingBalance uint64
	StartingStake   uint64
	MinDeposit      uint64
	StakeDenom      string
	AddressPrefix   string
}

// DefaultParams returns parameters fast enough for unit tests.
func DefaultParams() Params {
	return Params{
		BlockTime:         20 * time.Millisecond,
		RelayDelay:        40 * time.Millisecond,
		VotingPeriod:      300 * time.Millisecond,
		InitialEventNonce: 5,
		EthStartHeight:    100,
		StartingBalance:   100_000_000_000,
		StartingStake:     1_000_000_000,
		MinDeposit:        10_000_000,
		StakeDenom:        "stake",
		AddressPrefix:     "cosmos",
	}
}

// ParamsFromConfig derives the simulated chain parameters from a scenario configuration.
func ParamsFromConfig(cfg config.Config) Params {
	return Params{
		BlockTime:         cfg.Simnet.BlockTime,
		RelayDelay:        cfg.Simnet.RelayDelay,
		VotingPeriod:      cfg.Simnet.VotingPeriod,
		InitialEventNonce: cfg.Simnet.InitialEventNonce,
		EthStartHeight:    DefaultParams().EthStartHeight,
		StartingBalance:   cfg.Simnet.StartingBalance,
		StartingStake:     cfg.Scenario.StartingStake,
		MinDeposit:        cfg.Simnet.MinDeposit,
		StakeDenom:        cfg.Scenario.StakeDenom,
		AddressPrefix:     cfg.Chain.AddressPrefix,
	}
}

// inclusionTimeout bounds the internal wait of blocking transactions.
func (p Params) inclusionTimeout() time.Duration {
	return 10 * p.BlockTime
}
