package main

import (
	"time"

	"github.com/spf13/cobra"

	"fumble-backend/internal/shared/config"
)

var cfgFile string

// Idle rate limit buckets and expired quota windows are swept this often.
const sweepEvery = 10 * time.Minute

var rootCmd = &cobra.Command{
	Use:   "fumble",
	Short: "Did I Fumble: chat screenshot verdicts",
	Long: `fumble judges chat screenshots with a vision model and answers with a
short verdict: an outcome, a one-line roast and a tip.

Configuration comes from the environment (a local .env is loaded first)
and, optionally, a config file passed with --config.`,
	Version:       gitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (yaml, json or toml)",
	)

	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (config.Config, error) {
	return config.Load(cfgFile)
}
