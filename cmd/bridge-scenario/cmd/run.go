package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
	"github.com/osmosis-labs/cosmos-gravity-bridge/integration/scenario"
	"github.com/osmosis-labs/cosmos-gravity-bridge/integration/simnet"
	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/metrics"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/trace"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the halt and recovery scenario against a simulated network",
	Long: `Starts an in-memory gravity network with --sim-validators validators (or the set in --keys) and
runs the halt and recovery scenario against it. Exits non-zero if the scenario fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		set, err := validatorSet(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		collector, shutdown := scenarioMetrics(cfg)
		defer shutdown()

		network, err := simnet.NewNetwork(log, set, simnet.ParamsFromConfig(cfg))
		if err != nil {
			return err
		}
		tracer, flush, err := scenarioTracer(ctx, cfg)
		if err != nil {
			return err
		}
		defer flush()

		unhalt, err := scenario.NewUnhaltBridge(log, network, set, cfg.Chain, cfg.Scenario, collector, tracer)
		if err != nil {
			return err
		}

		report, err := unhalt.Run(ctx)
		if err != nil {
			return err
		}
		log.Info().
			Str("run_id", report.RunID.String()).
			Uint64("baseline", report.Baseline).
			Uint64("observed_nonce", network.LastObservedNonce()).
			Dur("duration", report.Duration()).
			Msg("bridge halted and recovered")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// validatorSet reads the set in --keys, or generates one of the configured size.
func validatorSet(cfg config.Config) (bridge.ValidatorSet, error) {
	if flagKeys == "" {
		return bridge.GenerateValidatorSet(cfg.Simnet.Validators)
	}
	set, err := readKeys(flagKeys)
	if err != nil {
		return nil, err
	}
	if len(set) != cfg.Simnet.Validators {
		log.Warn().Int("keys", len(set)).Int("configured", cfg.Simnet.Validators).Msg("keys file overrides the configured validator count")
	}
	for _, i := range cfg.Scenario.Minority {
		if i >= len(set) {
			return nil, fmt.Errorf("minority member %d outside of the %d validators in %s", i, len(set), flagKeys)
		}
	}
	return set, nil
}

// scenarioMetrics returns the collector to report to, serving it on /metrics when enabled.
func scenarioMetrics(cfg config.Config) (module.ScenarioMetrics, func()) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoopCollector(), func() {}
	}
	registry := prometheus.NewRegistry()
	collector := metrics.NewScenarioCollector(registry)
	server := metrics.NewServer(log, cfg.Metrics.Address, registry)
	<-server.Ready()
	return collector, func() {
		<-server.Done()
	}
}

// scenarioTracer returns the tracer of the run, exporting to the configured collector when enabled,
// and the function flushing its pending spans.
func scenarioTracer(ctx context.Context, cfg config.Config) (module.Tracer, func(), error) {
	if !cfg.Tracing.Enabled {
		return trace.NewNoopTracer(), func() {}, nil
	}
	tracer, err := trace.NewOTLPTracer(ctx, log, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint)
	if err != nil {
		return nil, nil, err
	}
	return tracer, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("spans were not flushed")
		}
	}, nil
}
