// Package cmd provides the CLI commands for interp-pricing.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"interpreting-pricing/internal/config"
	"interpreting-pricing/internal/logging"
)

// Version is the engine version reported by the CLI and the API
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "interp-pricing",
	Short: "Price interpreting appointments",
	Long: `interp-pricing prices interpreting appointments from a block-based rate
catalog, applies membership and promotional discounts and splits GST.

Examples:
  interp-pricing rates generate --category professional --seed 28.00
  interp-pricing quote ./request.json
  interp-pricing serve --config ./config.yaml`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	defer logging.Sync()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	// Environment overrides apply even without a file
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	// Initialize logging
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("interp-pricing version %s\n", Version)
	},
}
