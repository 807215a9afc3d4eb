package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/varbridge/neuriovars"
	"github.com/varbridge/neuriovars/internal/varstore"
)

func main() {
	// start mock sensor (see mock_sensor.go)
	go StartMockSensor(":9999")
	time.Sleep(100 * time.Millisecond)

	// run an in-process variable store so the demo is self-contained;
	// a real deployment runs vard separately
	registry := varstore.NewRegistry()
	if err := varstore.DeclareAll(registry, varstore.ConsumptionDeclarations("/CONSUMPTION")); err != nil {
		slog.Error("failed to declare variables", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := varstore.NewServer(registry, nil, slog.Default())
	if err := store.Start(ctx, "tcp://127.0.0.1:7090"); err != nil {
		slog.Error("failed to start store", "error", err)
		os.Exit(1)
	}
	defer store.Stop()

	// print one line per cycle from the callback
	bridge, err := neuriovars.New(
		neuriovars.WithSensorAddress("127.0.0.1:9999"),
		neuriovars.WithStoreAddress("tcp://127.0.0.1:7090"),
		neuriovars.WithInterval(time.Second),
		neuriovars.WithCycleCallback(func(result neuriovars.CycleResult) {
			if result.Error != nil {
				fmt.Printf("  cycle failed at %s: %v\n", result.Stage, result.Error)
				return
			}
			l1, l2, total := result.Readings[0], result.Readings[1], result.Readings[2]
			fmt.Printf("  %s  L1 %4dW %7.3fV   L2 %4dW %7.3fV   total %4dW   published %d\n",
				result.CheckedAt.Format("15:04:05"),
				l1.RealPower, l1.Voltage,
				l2.RealPower, l2.Voltage,
				total.RealPower, result.Published,
			)
		}),
	)
	if err != nil {
		slog.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   neuriovars Demo                                     ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Mock sensor:  http://127.0.0.1:9999/current-sample  ║")
	fmt.Println("  ║   Store:        tcp://127.0.0.1:7090                  ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Eleven /CONSUMPTION variables update every second   ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	if err := bridge.Run(ctx); err != nil {
		slog.Error("bridge error", "error", err)
		os.Exit(1)
	}
}
