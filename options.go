package neuriovars

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// bridgeConfig holds mutable state during Bridge construction.
type bridgeConfig struct {
	sensorAddress  string
	credential     string
	interval       time.Duration
	timeout        time.Duration
	storeAddress   string
	prefix         string
	logger         *slog.Logger
	cycleCallbacks []func(CycleResult)
}

// Option is a function that configures a [Bridge] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithSensorAddress], [WithCredential], [WithInterval],
// [WithTimeout], [WithStoreAddress], [WithVariablePrefix], [WithLogger],
// [WithCycleCallback].
type Option func(*bridgeConfig) error

// WithSensorAddress sets the sensor host to poll.
//
// The address may be a bare host ("192.168.86.31", "neurio.local") or a
// full http/https URL. The /current-sample path is appended by the bridge.
// Defaults to 192.168.86.31 if not specified.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithSensorAddress("http://neurio.local"),
//	)
//
// Returns an error if the address is empty.
func WithSensorAddress(addr string) Option {
	return func(cfg *bridgeConfig) error {
		if strings.TrimSpace(addr) == "" {
			return errors.New("sensor address cannot be empty")
		}
		cfg.sensorAddress = addr
		return nil
	}
}

// WithCredential sets the pre-encoded Basic credential for the sensor.
//
// The value is sent verbatim as "Authorization: Basic <credential>"; the
// bridge performs no encoding of its own. An empty credential sends no
// Authorization header, which is the default.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithCredential("dXNlcjpwYXNz"),
//	)
func WithCredential(credential string) Option {
	return func(cfg *bridgeConfig) error {
		cfg.credential = credential
		return nil
	}
}

// WithInterval sets how often the sensor is polled.
//
// The first poll happens one full interval after [Bridge.Run] starts.
// Defaults to 1 second if not specified, matching the sensor's sample
// cadence.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithInterval(2 * time.Second),
//	)
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *bridgeConfig) error {
		if d <= 0 {
			return errors.New("poll interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithTimeout sets the per-request timeout for sensor polls.
//
// Defaults to 10 seconds if not specified.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *bridgeConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithStoreAddress sets the variable store address.
//
// Accepted forms are "tcp://host:port", "unix:///path/to/socket", or a
// bare "host:port" (implies tcp). Defaults to tcp://127.0.0.1:7090 if not
// specified.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithStoreAddress("unix:///run/vard.sock"),
//	)
//
// Returns an error if the address is empty.
func WithStoreAddress(addr string) Option {
	return func(cfg *bridgeConfig) error {
		if strings.TrimSpace(addr) == "" {
			return errors.New("store address cannot be empty")
		}
		cfg.storeAddress = addr
		return nil
	}
}

// WithVariablePrefix sets the name prefix for the published variables.
//
// The prefix must start with a slash and must not end with one.
// Defaults to /CONSUMPTION if not specified, publishing names like
// /CONSUMPTION/L1/V.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithVariablePrefix("/HOUSE"),
//	)
func WithVariablePrefix(prefix string) Option {
	return func(cfg *bridgeConfig) error {
		if !strings.HasPrefix(prefix, "/") {
			return errors.New("variable prefix must start with a slash")
		}
		if strings.HasSuffix(prefix, "/") {
			return errors.New("variable prefix must not end with a slash")
		}
		cfg.prefix = prefix
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Bridge instance.
//
// This allows SDK consumers to control where logs are written and in what
// format. If not specified, [slog.Default] is used.
//
// Example:
//
//	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
//	bridge, err := neuriovars.New(
//	    neuriovars.WithLogger(logger),
//	)
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *bridgeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithCycleCallback registers a function to be called after every poll cycle.
//
// The callback receives a [CycleResult] containing the cycle outcome,
// including the extracted readings, how many variables were published, and
// any error that ended the cycle early.
//
// Multiple callbacks may be registered by calling WithCycleCallback multiple
// times; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. Long-running operations should
// dispatch work to a separate goroutine. Blocking callbacks will delay
// subsequent poll cycles.
//
// Callbacks are invoked synchronously from the polling goroutine. Panics
// within callbacks are recovered and logged; they do not crash the bridge.
//
// Example:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithCycleCallback(func(result neuriovars.CycleResult) {
//	        if result.Error != nil {
//	            log.Printf("cycle %s failed at %s: %v",
//	                result.CorrelationID, result.Stage, result.Error)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithCycleCallback(cb func(CycleResult)) Option {
	return func(cfg *bridgeConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.cycleCallbacks = append(cfg.cycleCallbacks, cb)
		return nil
	}
}
