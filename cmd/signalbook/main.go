package main

import (
	"fmt"
	"os"

	"github.com/newthinker/signalbook/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "signalbook",
	Short: "signalbook - paper trading for chat alert signals",
	Long: `signalbook turns trading alerts posted in chat channels into simulated
positions, manages them under a risk policy and reports their performance.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

// loadConfig reads --config, or the defaults when it is unset, and validates
// the result.
func loadConfig() (*config.Config, error) {
	cfg := config.Defaults()
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	if debug {
		cfg.Log.Development = true
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
