package neuriovars

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/varbridge/neuriovars/internal/rxbuf"
	"github.com/varbridge/neuriovars/internal/sensor"
	"github.com/varbridge/neuriovars/internal/varstore"
)

const (
	defaultSensorAddress = "192.168.86.31"
	defaultInterval      = 1 * time.Second
	defaultTimeout       = 10 * time.Second
	defaultStoreAddress  = "tcp://127.0.0.1:7090"
	defaultPrefix        = "/CONSUMPTION"
)

// Bridge is the main orchestrator for sensor polling and variable publishing.
//
// Bridge polls a Neurio sensor's /current-sample endpoint on a fixed
// interval, extracts the per-line readings from each payload, and writes
// them to a variable store. It is created using [New] with functional
// options and started with [Bridge.Run].
//
// The typical lifecycle is:
//
//	bridge, err := neuriovars.New(neuriovars.WithSensorAddress("192.168.86.31"))
//	if err != nil {
//	    slog.Error("failed to create bridge", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	bridge.Run(ctx) // blocks until context cancelled
//
// The caller controls the lifecycle via the context. Cancel the context to
// trigger graceful shutdown.
type Bridge struct {
	sensorURL      string
	credential     string
	interval       time.Duration
	timeout        time.Duration
	storeAddress   string
	prefix         string
	logger         *slog.Logger
	cycleCallbacks []func(CycleResult)
}

// New creates a new [Bridge] instance with the given options.
//
// All options have defaults suitable for a sensor on the local network:
//   - Sensor address: 192.168.86.31
//   - Poll interval: 1 second
//   - Request timeout: 10 seconds
//   - Store address: tcp://127.0.0.1:7090
//   - Variable prefix: /CONSUMPTION
//
// Returns an error if any option is invalid or if the sensor or store
// address cannot be parsed.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithSensorAddress("http://neurio.local"),
//	    neuriovars.WithInterval(2 * time.Second),
//	)
func New(opts ...Option) (*Bridge, error) {
	cfg := &bridgeConfig{
		sensorAddress: defaultSensorAddress,
		interval:      defaultInterval,
		timeout:       defaultTimeout,
		storeAddress:  defaultStoreAddress,
		prefix:        defaultPrefix,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	sensorURL, err := sensor.SampleURL(cfg.sensorAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid sensor address: %w", err)
	}

	if _, _, err := varstore.SplitAddress(cfg.storeAddress); err != nil {
		return nil, fmt.Errorf("invalid store address: %w", err)
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		sensorURL:      sensorURL,
		credential:     cfg.credential,
		interval:       cfg.interval,
		timeout:        cfg.timeout,
		storeAddress:   cfg.storeAddress,
		prefix:         cfg.prefix,
		logger:         logger,
		cycleCallbacks: cfg.cycleCallbacks,
	}, nil
}

// Run begins polling the sensor and publishing readings to the store.
//
// Run is a blocking call that runs until the provided context is cancelled.
// During execution:
//
//   - The store connection is established and variable handles are resolved
//   - The sensor is polled once per interval, starting one interval in
//   - Each payload's readings are written to the resolved variables
//   - Cycle outcomes are logged and delivered to registered callbacks
//
// A failed poll cycle is logged and the loop continues; only a store
// connection failure at startup is fatal. The caller controls the lifecycle
// via context cancellation. For signal handling, use [signal.NotifyContext]:
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//	bridge.Run(ctx)
//
// Returns nil on graceful shutdown. Returns an error if the store cannot
// be reached at startup.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("bridge starting", "sensor", b.sensorURL, "store", b.storeAddress, "prefix", b.prefix)
	b.logger.Info("polling configured", "interval", b.interval.String())

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	store, err := varstore.Dial(ctx, b.storeAddress)
	if err != nil {
		return fmt.Errorf("failed to connect to store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			b.logger.Warn("failed to close store connection", "error", err)
		}
	}()

	pubs := resolvePublications(ctx, store, b.prefix, b.logger)
	resolved := 0
	for _, p := range pubs {
		if p.handle != varstore.InvalidHandle {
			resolved++
		}
	}
	b.logger.Info("variables resolved", "resolved", resolved, "total", len(pubs))

	client := sensor.NewClient(b.timeout)
	defer client.Close()

	// one buffer reused across cycles; it grows to the payload size once
	// and is reset, not reallocated, on every poll
	buf := rxbuf.New(0)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("bridge stopped")
			return nil

		case <-ticker.C:
			result := b.runCycle(ctx, client, store, buf, pubs)

			// callbacks fire after the cycle's writes are done
			for _, cb := range b.cycleCallbacks {
				invokeCallbackSafe(cb, result, b.logger)
			}

			// log cycle results (DEBUG level for success to reduce noise)
			logAttrs := []any{
				"correlation_id", result.CorrelationID,
				"stage", result.Stage.String(),
				"status_code", result.StatusCode,
				"latency_ms", result.Latency.Milliseconds(),
				"published", result.Published,
			}
			if result.Error != nil {
				b.logger.Warn("cycle completed with error", append(logAttrs, "error", result.Error.Error())...)
			} else {
				b.logger.Debug("cycle completed", logAttrs...)
			}
		}
	}
}

// runCycle performs one poll cycle: fetch, extract, publish.
func (b *Bridge) runCycle(ctx context.Context, client *sensor.Client, store varstore.Client, buf *rxbuf.Buffer, pubs []publication) CycleResult {
	result := CycleResult{
		CorrelationID: uuid.NewString(),
		CheckedAt:     time.Now(),
	}

	buf.Reset()
	info, err := client.Fetch(ctx, b.sensorURL, b.credential, buf)
	result.StatusCode = info.StatusCode
	result.Latency = info.Latency
	if err != nil {
		result.Stage = StagePoll
		result.Error = fmt.Errorf("polling sensor: %w", err)
		return result
	}

	b.logger.Debug("sample received",
		"correlation_id", result.CorrelationID,
		"bytes", info.Bytes,
		"payload", buf.String(),
	)

	readings, err := sensor.Extract(buf.Bytes())
	if err != nil {
		result.Stage = StageExtract
		result.Error = fmt.Errorf("extracting readings: %w", err)
		return result
	}
	result.SensorID = readings.SensorID
	result.Readings = readingsToPublic(readings)

	result.Published, err = publishReadings(ctx, store, pubs, readings, b.logger)
	if err != nil {
		result.Stage = StagePublish
		result.Error = err
		return result
	}

	result.Stage = StageComplete
	return result
}

// SensorURL returns the full sample URL the bridge polls.
func (b *Bridge) SensorURL() string {
	return b.sensorURL
}

// Interval returns the configured interval between poll cycles.
func (b *Bridge) Interval() time.Duration {
	return b.interval
}

// Timeout returns the configured per-request timeout.
func (b *Bridge) Timeout() time.Duration {
	return b.timeout
}

// StoreAddress returns the configured variable store address.
func (b *Bridge) StoreAddress() string {
	return b.storeAddress
}

// VariablePrefix returns the configured variable name prefix.
func (b *Bridge) VariablePrefix() string {
	return b.prefix
}

// readingsToPublic converts internal sensor readings to the public API type.
func readingsToPublic(r sensor.Readings) []Reading {
	out := make([]Reading, len(r.Channels))
	for i, c := range r.Channels {
		out[i] = Reading{
			Line:           Line(c.Line.String()),
			Voltage:        c.Voltage,
			RealPower:      c.RealPower,
			ReactivePower:  c.ReactivePower,
			EnergyImported: c.EnergyImported,
		}
	}
	return out
}

// invokeCallbackSafe calls a cycle callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(CycleResult), result CycleResult, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("cycle callback panicked",
				"panic", r,
				"correlation_id", result.CorrelationID,
			)
		}
	}()
	cb(result)
}
