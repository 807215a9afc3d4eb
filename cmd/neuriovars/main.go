// Package main is the entry point for the neuriovars CLI.
//
// The bridge can be run either as a library (SDK) or as a standalone binary
// driven by flags and an optional YAML file. This CLI provides the
// standalone binary approach.
//
// Usage:
//
//	neuriovars run -c config.yaml      # Start the bridge
//	neuriovars validate -c config.yaml # Validate configuration
//	neuriovars version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "neuriovars",
	Short: "Publish Neurio sensor readings to a variable store",
	Long: `neuriovars bridges a Neurio energy sensor to a variable store.

It polls the sensor's /current-sample endpoint at a fixed interval,
extracts the per-phase consumption readings, and publishes them as
store variables under a common prefix.

Quick start:
  1. Start a store: vard --listen tcp://127.0.0.1:7090
  2. Start the bridge: neuriovars run -u 192.168.86.31
  3. Watch the consumption variables update once per second

Example config:
  sensor:
    address: 192.168.86.31
    auth: bmV1cmlvOnNlY3JldA==
  poll_interval: 1s
  store:
    address: tcp://127.0.0.1:7090
    prefix: /CONSUMPTION`,
	// No Run/RunE means this just shows help when called without subcommands
}

// osExit is swapped in tests that assert exit codes.
var osExit = os.Exit

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		osExit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this neuriovars binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("neuriovars %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)

	// Help prints usage and exits 1, same as any other usage outcome
	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		osExit(1)
	})
}
