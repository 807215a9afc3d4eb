// Package neuriovars bridges a Neurio home energy sensor to an external
// variable store.
//
// The bridge polls the sensor's /current-sample endpoint at a fixed
// interval, extracts the per-line power readings from the JSON payload,
// and publishes them as typed variables under a common name prefix
// (by default /CONSUMPTION). Downstream consumers read the variables from
// the store; the bridge itself is a pure writer.
//
// # Quick Start
//
// Create a bridge and run it with graceful shutdown:
//
//	bridge, _ := neuriovars.New(
//	    neuriovars.WithSensorAddress("192.168.86.31"),
//	    neuriovars.WithStoreAddress("tcp://127.0.0.1:7090"),
//	)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	bridge.Run(ctx) // blocks until context is cancelled
//
// # Configuration
//
// The bridge uses the functional options pattern for configuration:
//
//	bridge, err := neuriovars.New(
//	    neuriovars.WithSensorAddress("http://neurio.local"),
//	    neuriovars.WithCredential("dXNlcjpwYXNz"),
//	    neuriovars.WithInterval(2 * time.Second),
//	    neuriovars.WithTimeout(5 * time.Second),
//	    neuriovars.WithVariablePrefix("/HOUSE"),
//	)
//
// # Published Variables
//
// Each poll cycle publishes eleven variables: voltage, real power,
// reactive power, and imported energy for the two mains lines (L1, L2),
// plus real power, reactive power, and imported energy for the combined
// TOTAL channel. The totals channel has no voltage variable.
//
// Cycle outcomes can be observed with [WithCycleCallback], which receives
// a [CycleResult] after every poll, successful or not.
//
// # Architecture
//
// The bridge consists of several internal packages (under internal/):
//
//   - internal/rxbuf: Reusable receive buffer for response bodies
//   - internal/sensor: HTTP polling client and payload extraction
//   - internal/varstore: Variable store protocol client, plus the server,
//     persistence, and HTTP API used by the vard development daemon
//
// The internal packages are not part of the public API and may change
// without notice.
package neuriovars
