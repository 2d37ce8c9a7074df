package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// All constant strings are used for CLI flag names.
	// chain
	grpcEndpoint   = "grpc-endpoint"
	ethRPC         = "eth-rpc"
	addressPrefix  = "address-prefix"
	gravityAddress = "gravity-address"
	erc20Address   = "erc20-address"
	queryRateLimit = "query-rate-limit"
	queryBurst     = "query-burst"
	// scenario
	operationTimeout      = "operation-timeout"
	totalTimeout          = "total-timeout"
	pollInterval          = "poll-interval"
	recoveryDeadline      = "recovery-deadline"
	haltObservationWindow = "halt-observation-window"
	stakeDenom            = "stake-denom"
	proposalDeposit       = "proposal-deposit"
	feeAmount             = "fee-amount"
	gasLimit              = "gas-limit"
	startingStake         = "starting-stake"
	depositAmount         = "deposit-amount"
	minority              = "minority"
	voteQuorum            = "vote-quorum"
	voteWorkers           = "vote-workers"
	redistributeStake     = "redistribute-stake"
	verifyHalt            = "verify-halt"
	warmupDeposit         = "warmup-deposit"
	// simnet
	simValidators        = "sim-validators"
	simBlockTime         = "sim-block-time"
	simRelayDelay        = "sim-relay-delay"
	simVotingPeriod      = "sim-voting-period"
	simInitialEventNonce = "sim-initial-event-nonce"
	simStartingBalance   = "sim-starting-balance"
	simMinDeposit        = "sim-min-deposit"
	// metrics, tracing and logging
	metricsEnabled     = "metrics-enabled"
	metricsAddress     = "metrics-address"
	tracingEnabled     = "tracing-enabled"
	tracingEndpoint    = "tracing-endpoint"
	tracingServiceName = "tracing-service-name"
	logLevel           = "loglevel"
	logJSON            = "log-json"
)

// flagKeys maps every flag to the configuration key it overrides.
var flagKeys = map[string]string{
	grpcEndpoint:          "chain.grpc-endpoint",
	ethRPC:                "chain.eth-rpc",
	addressPrefix:         "chain.address-prefix",
	gravityAddress:        "chain.gravity-address",
	erc20Address:          "chain.erc20-address",
	queryRateLimit:        "chain.query-rate-limit",
	queryBurst:            "chain.query-burst",
	operationTimeout:      "scenario.operation-timeout",
	totalTimeout:          "scenario.total-timeout",
	pollInterval:          "scenario.poll-interval",
	recoveryDeadline:      "scenario.recovery-deadline",
	haltObservationWindow: "scenario.halt-observation-window",
	stakeDenom:            "scenario.stake-denom",
	proposalDeposit:       "scenario.proposal-deposit",
	feeAmount:             "scenario.fee-amount",
	gasLimit:              "scenario.gas-limit",
	startingStake:         "scenario.starting-stake",
	depositAmount:         "scenario.deposit-amount",
	minority:              "scenario.minority",
	voteQuorum:            "scenario.vote-quorum",
	voteWorkers:           "scenario.vote-workers",
	redistributeStake:     "scenario.redistribute-stake",
	verifyHalt:            "scenario.verify-halt",
	warmupDeposit:         "scenario.warmup-deposit",
	simValidators:         "simnet.validators",
	simBlockTime:          "simnet.block-time",
	simRelayDelay:         "simnet.relay-delay",
	simVotingPeriod:       "simnet.voting-period",
	simInitialEventNonce:  "simnet.initial-event-nonce",
	simStartingBalance:    "simnet.starting-balance",
	simMinDeposit:         "simnet.min-deposit",
	metricsEnabled:        "metrics.enabled",
	metricsAddress:        "metrics.address",
	tracingEnabled:        "tracing.enabled",
	tracingEndpoint:       "tracing.endpoint",
	tracingServiceName:    "tracing.service-name",
	logLevel:              "log.level",
	logJSON:               "log.json",
}

func AllFlagNames() []string {
	return []string{
		grpcEndpoint, ethRPC, addressPrefix, gravityAddress, erc20Address, queryRateLimit, queryBurst,
		operationTimeout, totalTimeout, pollInterval, recoveryDeadline, haltObservationWindow, stakeDenom, proposalDeposit,
		feeAmount, gasLimit, startingStake, depositAmount, minority, voteQuorum, voteWorkers, redistributeStake, verifyHalt, warmupDeposit,
		simValidators, simBlockTime, simRelayDelay, simVotingPeriod, simInitialEventNonce, simStartingBalance, simMinDeposit,
		metricsEnabled, metricsAddress, tracingEnabled, tracingEndpoint, tracingServiceName, logLevel, logJSON,
	}
}

// InitializeFlags registers a flag for every configuration value on flags, using config for the defaults.
func InitializeFlags(flags *pflag.FlagSet, config Config) {
	flags.String(grpcEndpoint, config.Chain.GRPCEndpoint, "host:port of the cosmos gRPC endpoint")
	flags.String(ethRPC, config.Chain.EthRPC, "url of the ethereum JSON-RPC endpoint")
	flags.String(addressPrefix, config.Chain.AddressPrefix, "bech32 prefix of cosmos account addresses")
	flags.String(gravityAddress, config.Chain.GravityAddress, "address of the gravity bridge contract")
	flags.String(erc20Address, config.Chain.ERC20Address, "address of the erc20 used for deposits and false claims")
	flags.Float64(queryRateLimit, config.Chain.QueryRateLimit, "maximum number of chain queries per second")
	flags.Int(queryBurst, config.Chain.QueryBurst, "maximum burst of chain queries")

	flags.Duration(operationTimeout, config.Scenario.OperationTimeout, "how long to wait for a single transaction to finalize")
	flags.Duration(totalTimeout, config.Scenario.TotalTimeout, "how long to wait for the validators to converge on the expected nonces")
	flags.Duration(pollInterval, config.Scenario.PollInterval, "interval between two nonce snapshots")
	flags.Duration(recoveryDeadline, config.Scenario.RecoveryDeadline, "how long to wait for the bridge state reset to take effect")
	flags.Duration(haltObservationWindow, config.Scenario.HaltObservationWindow, "how long a deposit must stay unobserved to confirm the halt, 0 to skip")
	flags.String(stakeDenom, config.Scenario.StakeDenom, "denom used for fees, deposits and delegations")
	flags.Uint64(proposalDeposit, config.Scenario.ProposalDeposit, "initial deposit of the recovery proposal")
	flags.Uint64(feeAmount, config.Scenario.FeeAmount, "fee attached to every transaction")
	flags.Uint64(gasLimit, config.Scenario.GasLimit, "gas limit of every transaction")
	flags.Uint64(startingStake, config.Scenario.StartingStake, "stake every validator bonded at genesis")
	flags.Uint64(depositAmount, config.Scenario.DepositAmount, "amount of the erc20 sent by each legitimate deposit")
	flags.IntSlice(minority, config.Scenario.Minority, "indices of the validators submitting false claims, empty for all but validator 0")
	flags.Float64(voteQuorum, config.Scenario.VoteQuorum, "fraction of validators whose vote must finalize")
	flags.Int(voteWorkers, config.Scenario.VoteWorkers, "number of concurrent vote finalization waits")
	flags.Bool(redistributeStake, config.Scenario.RedistributeStake, "delegate stake to validator 0 so the false claim minority stays below the observation threshold")
	flags.Bool(verifyHalt, config.Scenario.VerifyHalt, "confirm the halt by sending a deposit that must not be observed")
	flags.Bool(warmupDeposit, config.Scenario.WarmupDeposit, "send and await a deposit before recording the baseline")

	flags.Int(simValidators, config.Simnet.Validators, "number of validators of the simulated network")
	flags.Duration(simBlockTime, config.Simnet.BlockTime, "block time of the simulated chain")
	flags.Duration(simRelayDelay, config.Simnet.RelayDelay, "delay before simulated orchestrators relay an ethereum event")
	flags.Duration(simVotingPeriod, config.Simnet.VotingPeriod, "voting period of the simulated chain")
	flags.Uint64(simInitialEventNonce, config.Simnet.InitialEventNonce, "event nonce every simulated orchestrator starts at")
	flags.Uint64(simStartingBalance, config.Simnet.StartingBalance, "stake balance of every simulated validator account")
	flags.Uint64(simMinDeposit, config.Simnet.MinDeposit, "minimum proposal deposit of the simulated chain")

	flags.Bool(metricsEnabled, config.Metrics.Enabled, "serve prometheus metrics")
	flags.String(metricsAddress, config.Metrics.Address, "listen address of the metrics server")
	flags.Bool(tracingEnabled, config.Tracing.Enabled, "export scenario spans over OTLP")
	flags.String(tracingEndpoint, config.Tracing.Endpoint, "host:port of the OTLP gRPC collector")
	flags.String(tracingServiceName, config.Tracing.ServiceName, "service name attached to exported spans")
	flags.String(logLevel, config.Log.Level, "level for logging output")
	flags.Bool(logJSON, config.Log.JSON, "log json instead of console output")
}

// BindFlags registers every flag of flags that InitializeFlags created as the source of its configuration key.
// Flags keep their defaults as the lowest priority source.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for _, name := range AllFlagNames() {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("flag %s is not registered, call InitializeFlags first", name)
		}
		if err := v.BindPFlag(flagKeys[name], flag); err != nil {
			return fmt.Errorf("could not bind flag %s: %w", name, err)
		}
	}
	return nil
}
