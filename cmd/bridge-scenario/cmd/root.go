package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/osmosis-labs/cosmos-gravity-bridge/config"
)

var (
	flagConfig string
	flagKeys   string
	log        zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bridge-scenario",
	Short: "Halt and recover a gravity bridge",
	Long: `Drives the gravity bridge halt/recovery scenario: a minority of orchestrators attests to an
Ethereum deposit that never happened, the bridge halts, and a governance proposal resets the bridge
state so that deposits are observed again.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "",
		"path to a YAML, TOML or JSON configuration file")
	rootCmd.PersistentFlags().StringVarP(&flagKeys, "keys", "k", "",
		"path to a validator keys file written by the keys command")
	config.InitializeFlags(rootCmd.PersistentFlags(), config.Default())

	log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.AutomaticEnv()
}

// loadConfig resolves the configuration of cmd and applies its log settings.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), flagConfig)
	if err != nil {
		return config.Config{}, err
	}
	if cfg.Log.JSON {
		log = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	log = log.Level(cfg.Log.ZerologLevel())
	return cfg, nil
}
