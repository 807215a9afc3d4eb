package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varbridge/neuriovars/config"
)

// validateCmd validates a config file without starting the bridge.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a neuriovars configuration file without starting the bridge.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  neuriovars validate -c config.yaml
  neuriovars validate --config /etc/neuriovars/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	auth := "none"
	if cfg.Sensor.Auth != "" {
		auth = "configured"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Sensor:        %s\n", cfg.Sensor.Address)
	fmt.Printf("  Auth header:   %s\n", auth)
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Timeout:       %s\n", cfg.Sensor.Timeout.Duration())
	fmt.Printf("  Store:         %s\n", cfg.Store.Address)
	fmt.Printf("  Prefix:        %s\n", cfg.Store.Prefix)

	return nil
}
