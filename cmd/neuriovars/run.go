package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/varbridge/neuriovars"
	"github.com/varbridge/neuriovars/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// newLogger creates a JSON logger for CLI use.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// runCmd starts the sensor-to-store bridge.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bridge",
	Long: `Start the sensor-to-store bridge.

The bridge will:
  - Load configuration from the YAML file, if one is given
  - Connect to the variable store and resolve the consumption variables
  - Poll the sensor once per interval and publish the readings

Flags override values from the config file. The bridge runs until
interrupted (Ctrl+C) or it receives SIGTERM.

Example:
  neuriovars run -c config.yaml
  neuriovars run -u 192.168.86.31 -a bmV1cmlvOnNlY3JldA== -p 1`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file")
	runCmd.Flags().StringP("address", "u", "", "sensor address (host, host:port, or URL)")
	runCmd.Flags().StringP("auth", "a", "", "pre-encoded basic-auth credential for the sensor")
	runCmd.Flags().IntP("interval", "p", 0, "polling interval in seconds")
	runCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")
	runCmd.Flags().String("store", "", "variable store address")
	runCmd.Flags().Duration("timeout", 0, "sensor request timeout")
	runCmd.Flags().String("prefix", "", "variable name prefix")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(verbose || cfg.Verbose)

	// flag options come after the config-derived ones, so flags win
	opts := config.BuildOptions(cfg)
	opts = append(opts, flagOptions(cmd)...)
	opts = append(opts, neuriovars.WithLogger(logger))

	bridge, err := neuriovars.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	logger.Info("config loaded",
		"sensor", bridge.SensorURL(),
		"store", bridge.StoreAddress(),
		"prefix", bridge.VariablePrefix(),
		"poll_interval", bridge.Interval().String(),
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the bridge - blocks until context cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- bridge.Run(ctx)
	}()

	// wait for the bridge to finish
	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("bridge error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("bridge error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// loadConfig reads the config file when one is given; without one the
// built-in defaults apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Parse(nil)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// flagOptions converts explicitly set flags into SDK options.
func flagOptions(cmd *cobra.Command) []neuriovars.Option {
	var opts []neuriovars.Option

	if cmd.Flags().Changed("address") {
		v, _ := cmd.Flags().GetString("address")
		opts = append(opts, neuriovars.WithSensorAddress(v))
	}
	if cmd.Flags().Changed("auth") {
		v, _ := cmd.Flags().GetString("auth")
		opts = append(opts, neuriovars.WithCredential(v))
	}
	if cmd.Flags().Changed("interval") {
		v, _ := cmd.Flags().GetInt("interval")
		opts = append(opts, neuriovars.WithInterval(time.Duration(v)*time.Second))
	}
	if cmd.Flags().Changed("timeout") {
		v, _ := cmd.Flags().GetDuration("timeout")
		opts = append(opts, neuriovars.WithTimeout(v))
	}
	if cmd.Flags().Changed("store") {
		v, _ := cmd.Flags().GetString("store")
		opts = append(opts, neuriovars.WithStoreAddress(v))
	}
	if cmd.Flags().Changed("prefix") {
		v, _ := cmd.Flags().GetString("prefix")
		opts = append(opts, neuriovars.WithVariablePrefix(v))
	}

	return opts
}
