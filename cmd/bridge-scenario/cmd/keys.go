package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osmosis-labs/cosmos-gravity-bridge/model/bridge"
)

var (
	flagCount  int
	flagOutput string
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate a validator set and print its derived addresses",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		set, err := bridge.GenerateValidatorSet(flagCount)
		if err != nil {
			return err
		}
		for i, identity := range set {
			e, err := encodeIdentity(identity, cfg.Chain.AddressPrefix)
			if err != nil {
				return fmt.Errorf("could not derive addresses of validator %d: %w", i, err)
			}
			log.Info().
				Int("index", i).
				Str("validator", e.ValidatorAddress).
				Str("operator", e.OperatorAddress).
				Str("orchestrator", e.OrchestratorAddress).
				Str("eth", e.EthAddress).
				Msg("validator")
		}

		if flagOutput == "" {
			return nil
		}
		if err := writeKeys(flagOutput, set, cfg.Chain.AddressPrefix); err != nil {
			return err
		}
		log.Info().Msgf("wrote file %v", flagOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.Flags().IntVarP(&flagCount, "count", "n", 3, "number of validators to generate")
	keysCmd.Flags().StringVarP(&flagOutput, "output", "o", "",
		"path of the keys file to write; addresses are only printed when empty")
}
