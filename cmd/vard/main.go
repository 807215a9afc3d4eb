// Package main is the entry point for vard, the variable store daemon.
//
// vard holds the declared variables, serves the wire protocol the bridge
// publishes through, and optionally persists values to SQLite and exposes
// a read-only HTTP API.
//
// Usage:
//
//	vard                                  # Built-in consumption variables
//	vard --vars vars.yaml --db vard.db    # Custom variables, persisted
//	vard --http 127.0.0.1:8080            # Plus the HTTP API
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/varbridge/neuriovars/internal/varstore"
)

// Version information - set by GoReleaser at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "vard",
	Short: "Variable store daemon",
	Long: `vard is the variable store daemon the neuriovars bridge publishes to.

It declares a set of typed variables at startup, then serves find and
set requests over a TCP or unix socket. Without --vars it declares the
standard consumption variables under /CONSUMPTION.

With --db, every write is mirrored to a SQLite file and the stored
values are restored on the next start. With --http, a read-only JSON
API serves the current values.

Example:
  vard --listen tcp://127.0.0.1:7090 --db /var/lib/vard/vard.db
  vard --vars vars.yaml --http 127.0.0.1:8080`,
	RunE: runStore,
}

func init() {
	rootCmd.Flags().String("listen", "tcp://127.0.0.1:7090", "store listen address (tcp://host:port or unix:///path)")
	rootCmd.Flags().String("http", "", "read-only HTTP API listen address (disabled when empty)")
	rootCmd.Flags().String("vars", "", "path to a variable declarations YAML file")
	rootCmd.Flags().String("db", "", "path to a SQLite file for value persistence")
	rootCmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vard %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runStore(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	decls, err := loadDeclarations(cmd)
	if err != nil {
		return err
	}

	registry := varstore.NewRegistry()
	if err := varstore.DeclareAll(registry, decls); err != nil {
		return fmt.Errorf("failed to declare variables: %w", err)
	}
	logger.Info("variables declared", "count", registry.Len())

	var db *varstore.DB
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		db, err = varstore.OpenDB(dbPath, logger)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close database", "error", err)
			}
		}()

		restored, err := db.LoadInto(registry)
		if err != nil {
			return fmt.Errorf("failed to restore values: %w", err)
		}
		logger.Info("values restored", "path", dbPath, "count", restored)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listen, _ := cmd.Flags().GetString("listen")
	srv := varstore.NewServer(registry, db, logger)
	if err := srv.Start(ctx, listen); err != nil {
		return fmt.Errorf("failed to start store: %w", err)
	}
	defer srv.Stop()

	if httpAddr, _ := cmd.Flags().GetString("http"); httpAddr != "" {
		api := varstore.NewHTTPServer(registry, httpAddr, logger)
		if err := api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start HTTP API: %w", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// loadDeclarations reads the --vars file when given; without one the
// standard consumption variables are declared.
func loadDeclarations(cmd *cobra.Command) ([]varstore.Declaration, error) {
	path, _ := cmd.Flags().GetString("vars")
	if path == "" {
		return varstore.ConsumptionDeclarations("/CONSUMPTION"), nil
	}
	decls, err := varstore.LoadDeclarations(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load declarations: %w", err)
	}
	return decls, nil
}
