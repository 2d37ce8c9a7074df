package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/holiman/uint256"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

// EnvPrefix prefixes every environment variable overriding a configuration value, e.g.
// GRAVITY_SCENARIO_SCENARIO_POLL_INTERVAL=5s.
const EnvPrefix = "GRAVITY_SCENARIO"

// Config is the complete configuration of a scenario run. Components receive the section they need
// explicitly; nothing reads configuration from process-wide state.
type Config struct {
	Chain    ChainConfig    `mapstructure:"chain"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Simnet   SimnetConfig   `mapstructure:"simnet"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

// ChainConfig locates the live Cosmos and Ethereum endpoints.
type ChainConfig struct {
	GRPCEndpoint   string  `mapstructure:"grpc-endpoint" validate:"required,hostname_port"`
	EthRPC         string  `mapstructure:"eth-rpc" validate:"required,url"`
	AddressPrefix  string  `mapstructure:"address-prefix" validate:"required,alpha,lowercase"`
	GravityAddress string  `mapstructure:"gravity-address" validate:"omitempty,eth_addr"`
	ERC20Address   string  `mapstructure:"erc20-address" validate:"required,eth_addr"`
	QueryRateLimit float64 `mapstructure:"query-rate-limit" validate:"gt=0"`
	QueryBurst     int     `mapstructure:"query-burst" validate:"gte=1"`
}

// ERC20 returns the token contract deposits and false claims refer to.
func (c ChainConfig) ERC20() common.Address {
	return common.HexToAddress(c.ERC20Address)
}

// Gravity returns the bridge contract address.
func (c ChainConfig) Gravity() common.Address {
	return common.HexToAddress(c.GravityAddress)
}

// ScenarioConfig holds the timing and economic parameters of the halt/recovery scenario.
type ScenarioConfig struct {
	// OperationTimeout bounds a single transaction finalization.
	OperationTimeout time.Duration `mapstructure:"operation-timeout" validate:"gt=0"`
	// TotalTimeout bounds each convergence wait other than recovery.
	TotalTimeout time.Duration `mapstructure:"total-timeout" validate:"gt=0,gtefield=OperationTimeout"`
	PollInterval time.Duration `mapstructure:"poll-interval" validate:"gt=0,ltfield=TotalTimeout"`
	// RecoveryDeadline bounds the wait for every validator to be reset to the baseline nonce.
	RecoveryDeadline time.Duration `mapstructure:"recovery-deadline" validate:"gt=0"`
	// HaltObservationWindow is how long a deposit must stay unobserved to confirm the halt.
	HaltObservationWindow time.Duration `mapstructure:"halt-observation-window" validate:"gte=0"`

	StakeDenom      string `mapstructure:"stake-denom" validate:"required"`
	ProposalDeposit uint64 `mapstructure:"proposal-deposit" validate:"gt=0"`
	FeeAmount       uint64 `mapstructure:"fee-amount"`
	GasLimit        uint64 `mapstructure:"gas-limit" validate:"gt=0"`
	// StartingStake is the stake every validator bonded at genesis; redistribution moves a quarter
	// of it from every other validator to the honest one.
	StartingStake uint64 `mapstructure:"starting-stake" validate:"gt=0"`
	DepositAmount uint64 `mapstructure:"deposit-amount" validate:"gt=0"`

	// Minority lists the validators submitting false claims. Empty means every validator except the honest one.
	Minority    []int   `mapstructure:"minority" validate:"dive,gt=0"`
	VoteQuorum  float64 `mapstructure:"vote-quorum" validate:"gt=0,lte=1"`
	VoteWorkers int     `mapstructure:"vote-workers" validate:"gte=1"`

	RedistributeStake bool `mapstructure:"redistribute-stake"`
	VerifyHalt        bool `mapstructure:"verify-halt"`
	WarmupDeposit     bool `mapstructure:"warmup-deposit"`
}

// Fee returns the fee attached to every transaction.
func (c ScenarioConfig) Fee() bridge.Fee {
	return bridge.NewFee(bridge.NewCoin(c.StakeDenom, c.FeeAmount), c.GasLimit)
}

// Deposit returns the initial deposit of the recovery proposal.
func (c ScenarioConfig) Deposit() bridge.Coin {
	return bridge.NewCoin(c.StakeDenom, c.ProposalDeposit)
}

// Deposits returns the amount of the ERC20 sent in each legitimate deposit.
func (c ScenarioConfig) Deposits() *uint256.Int {
	return uint256.NewInt(c.DepositAmount)
}

// MinorityOf resolves the false claim minority for a set of n validators.
func (c ScenarioConfig) MinorityOf(n int) []int {
	if len(c.Minority) > 0 {
		return append([]int(nil), c.Minority...)
	}
	minority := make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != bridge.HonestIndex {
			minority = append(minority, i)
		}
	}
	return minority
}

// SimnetConfig parameterises the in-memory bridge network.
type SimnetConfig struct {
	Validators        int           `mapstructure:"validators" validate:"gte=2"`
	BlockTime         time.Duration `mapstructure:"block-time" validate:"gt=0"`
	RelayDelay        time.Duration `mapstructure:"relay-delay" validate:"gte=0"`
	VotingPeriod      time.Duration `mapstructure:"voting-period" validate:"gt=0"`
	InitialEventNonce uint64        `mapstructure:"initial-event-nonce"`
	StartingBalance   uint64        `mapstructure:"starting-balance" validate:"gt=0"`
	MinDeposit        uint64        `mapstructure:"min-deposit"`
}

// MetricsConfig controls the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address" validate:"omitempty,hostname_port"`
}

// TracingConfig controls the export of scenario spans to an OTLP collector.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	ServiceName string `mapstructure:"service-name" validate:"required"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ZerologLevel returns the configured level. Validate guarantees it parses.
func (c LogConfig) ZerologLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Default returns the configuration used by the local test network.
func Default() Config {
	return Config{
		Chain: ChainConfig{
			GRPCEndpoint:   "localhost:9090",
			EthRPC:         "http://localhost:8545",
			AddressPrefix:  bridge.DefaultAddressPrefix,
			ERC20Address:   "0x7580bFE88Dd3d07947908FAE12d95872a260F2D8",
			QueryRateLimit: 20,
			QueryBurst:     5,
		},
		Scenario: ScenarioConfig{
			OperationTimeout:      30 * time.Second,
			TotalTimeout:          5 * time.Minute,
			PollInterval:          10 * time.Second,
			RecoveryDeadline:      10 * time.Minute,
			HaltObservationWindow: 30 * time.Second,
			StakeDenom:            "stake",
			ProposalDeposit:       1_000_000_000,
			FeeAmount:             1,
			GasLimit:              500_000_000,
			StartingStake:         1_000_000_000,
			DepositAmount:         100_000_000_000_000_000,
			VoteQuorum:            2.0 / 3.0,
			VoteWorkers:           8,
			RedistributeStake:     true,
			VerifyHalt:            true,
			WarmupDeposit:         true,
		},
		Simnet: SimnetConfig{
			Validators:        3,
			BlockTime:         200 * time.Millisecond,
			RelayDelay:        400 * time.Millisecond,
			VotingPeriod:      2 * time.Second,
			InitialEventNonce: 5,
			StartingBalance:   100_000_000_000,
			MinDeposit:        10_000_000,
		},
		Metrics: MetricsConfig{
			Address: "localhost:8080",
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4317",
			ServiceName: "bridge-scenario",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

var validate = validator.New()

// Validate checks every section of the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("invalid configuration: metrics enabled without an address")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("invalid configuration: tracing enabled without an endpoint")
	}
	for _, i := range c.Scenario.Minority {
		if i >= c.Simnet.Validators {
			return fmt.Errorf("invalid configuration: minority member %d outside of %d simulated validators", i, c.Simnet.Validators)
		}
	}
	return nil
}

// Load builds the configuration from, in increasing priority: defaults, the optional config file,
// environment variables and the command line flags that were explicitly set. flags must have been
// initialized with InitializeFlags.
func Load(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	if err := BindFlags(v, flags); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("could not read config file %s: %w", configFile, err)
		}
	}

	return Unmarshal(v)
}

// Unmarshal decodes and validates the configuration held by v.
func Unmarshal(v *viper.Viper) (Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return Config{}, fmt.Errorf("could not decode configuration: %w", err)
	}
	if len(cfg.Scenario.Minority) == 0 {
		cfg.Scenario.Minority = nil
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
