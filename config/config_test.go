package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/unittest"
)

func flagSet(t *testing.T, args ...string) *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.InitializeFlags(flags, config.Default())
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestDefault_Valid(t *testing.T) {
	require.NoError(t, config.Default().Validate())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(flagSet(t), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FlagsOverride(t *testing.T) {
	cfg, err := config.Load(flagSet(t,
		"--poll-interval=2s",
		"--recovery-deadline=20m",
		"--minority=1,2",
		"--sim-validators=4",
		"--loglevel=debug",
	), "")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Scenario.PollInterval)
	assert.Equal(t, 20*time.Minute, cfg.Scenario.RecoveryDeadline)
	assert.Equal(t, []int{1, 2}, cfg.Scenario.Minority)
	assert.Equal(t, 4, cfg.Simnet.Validators)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GRAVITY_SCENARIO_SCENARIO_TOTAL_TIMEOUT", "7m")
	t.Setenv("GRAVITY_SCENARIO_CHAIN_ADDRESS_PREFIX", "osmo")

	cfg, err := config.Load(flagSet(t), "")
	require.NoError(t, err)
	assert.Equal(t, 7*time.Minute, cfg.Scenario.TotalTimeout)
	assert.Equal(t, "osmo", cfg.Chain.AddressPrefix)
}

// TestLoad_Precedence checks that an explicit flag beats the environment, which beats the config file.
func TestLoad_Precedence(t *testing.T) {
	unittest.RunWithTempDir(t, func(dir string) {
		path := filepath.Join(dir, "scenario.yaml")
		content := "scenario:\n  poll-interval: 3s\n  vote-workers: 2\nsimnet:\n  voting-period: 5s\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		t.Setenv("GRAVITY_SCENARIO_SCENARIO_VOTE_WORKERS", "4")

		cfg, err := config.Load(flagSet(t, "--poll-interval=1s"), path)
		require.NoError(t, err)
		assert.Equal(t, time.Second, cfg.Scenario.PollInterval)
		assert.Equal(t, 4, cfg.Scenario.VoteWorkers)
		assert.Equal(t, 5*time.Second, cfg.Simnet.VotingPeriod)
	})
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := config.Load(flagSet(t), "/does/not/exist.yaml")
	require.Error(t, err)
}

func TestLoad_UninitializedFlags(t *testing.T) {
	_, err := config.Load(pflag.NewFlagSet("empty", pflag.ContinueOnError), "")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*config.Config){
		"honest validator in minority":  func(c *config.Config) { c.Scenario.Minority = []int{0, 1} },
		"minority outside set":          func(c *config.Config) { c.Scenario.Minority = []int{3} },
		"zero poll interval":            func(c *config.Config) { c.Scenario.PollInterval = 0 },
		"poll interval beyond timeout":  func(c *config.Config) { c.Scenario.PollInterval = 10 * time.Minute },
		"total below operation timeout": func(c *config.Config) { c.Scenario.TotalTimeout = time.Second },
		"quorum above one":              func(c *config.Config) { c.Scenario.VoteQuorum = 1.5 },
		"single validator":              func(c *config.Config) { c.Simnet.Validators = 1 },
		"invalid erc20":                 func(c *config.Config) { c.Chain.ERC20Address = "0x1234" },
		"invalid grpc endpoint":         func(c *config.Config) { c.Chain.GRPCEndpoint = "localhost" },
		"unknown log level":             func(c *config.Config) { c.Log.Level = "verbose" },
		"metrics without address":       func(c *config.Config) { c.Metrics.Enabled = true; c.Metrics.Address = "" },
		"tracing without endpoint":      func(c *config.Config) { c.Tracing.Enabled = true; c.Tracing.Endpoint = "" },
		"tracing without service name":  func(c *config.Config) { c.Tracing.ServiceName = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestScenarioConfig_MinorityOf(t *testing.T) {
	cfg := config.Default().Scenario
	assert.Equal(t, []int{1, 2, 3}, cfg.MinorityOf(4))

	cfg.Minority = []int{2}
	minority := cfg.MinorityOf(4)
	assert.Equal(t, []int{2}, minority)
	minority[0] = 3
	assert.Equal(t, []int{2}, cfg.Minority, "resolved minority must not alias the configuration")
}

func TestScenarioConfig_Coins(t *testing.T) {
	cfg := config.Default().Scenario
	assert.Equal(t, bridge.NewFee(bridge.NewCoin("stake", 1), 500_000_000), cfg.Fee())
	assert.Equal(t, "1000000000stake", cfg.Deposit().String())
	assert.Equal(t, "100000000000000000", cfg.Deposits().Dec())
}
