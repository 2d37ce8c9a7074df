package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/osmosis-labs/cosmos-gravity-bridge/integration/client"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/metrics"
	"github.com/osmosis-labs/cosmos-gravity-bridge/module/nonce"
	"github.com/osmosis-labs/cosmos-gravity-bridge/utils/logging"
)

var flagWithEthereum bool

// noncesCmd represents the nonces command
var noncesCmd = &cobra.Command{
	Use:   "nonces",
	Short: "Print the last event nonce of every orchestrator of a live chain",
	Long: `Queries the gravity module of a live chain for the last event nonce each orchestrator of the
validator set in --keys attested to. With --with-ethereum the event nonce of the Gravity contract is
printed as well.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if flagKeys == "" {
			return fmt.Errorf("--keys is required")
		}
		set, err := readKeys(flagKeys)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Scenario.OperationTimeout)
		defer cancel()

		querier, err := client.NewCosmosQueryClient(log, cfg.Chain, client.DefaultCircuitBreakerConfig())
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, querier.Close())
		}()

		monitor := nonce.NewMonitor(log, querier, metrics.NewNoopCollector(), cfg.Chain.AddressPrefix)
		snapshot, err := monitor.Snapshot(ctx, set)
		if err != nil {
			return fmt.Errorf("could not snapshot nonces: %w", err)
		}
		value, equal := snapshot.AllEqual()
		event := log.Info().Dict("nonces", logging.Snapshot(snapshot)).Bool("all_equal", equal)
		if equal {
			event = event.Uint64("nonce", value)
		}
		event.Msg("orchestrator nonces")

		if !flagWithEthereum {
			return nil
		}
		eth, err := client.NewEthereumClient(ctx, log, cfg.Chain, cfg.Scenario.OperationTimeout)
		if err != nil {
			return err
		}
		defer eth.Close()
		contractNonce, err := eth.EventNonce(ctx)
		if err != nil {
			return err
		}
		log.Info().Uint64("nonce", contractNonce).Str("contract", cfg.Chain.GravityAddress).Msg("gravity contract event nonce")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noncesCmd)

	noncesCmd.Flags().BoolVar(&flagWithEthereum, "with-ethereum", false, "also query the Gravity contract event nonce")
}
