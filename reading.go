package neuriovars

import "time"

// Line identifies one of the sensor's reported channels.
//
// Line holds one of three predefined values: [LineL1], [LineL2], or
// [LineTotal]. The string form appears as-is in variable names and logs.
type Line string

const (
	// LineL1 is the first mains line.
	LineL1 Line = "L1"

	// LineL2 is the second mains line.
	LineL2 Line = "L2"

	// LineTotal is the combined consumption channel.
	LineTotal Line = "TOTAL"
)

// String returns the string representation of the line.
// This implements the fmt.Stringer interface.
func (l Line) String() string {
	return string(l)
}

// Stage identifies the phase of a poll cycle.
//
// A [CycleResult] carries the stage the cycle reached: [StageComplete]
// when everything succeeded, otherwise the stage where the failure
// occurred.
type Stage string

const (
	// StagePoll is the HTTP request to the sensor.
	StagePoll Stage = "poll"

	// StageExtract is the parsing of the sensor payload.
	StageExtract Stage = "extract"

	// StagePublish is the write of the extracted values to the store.
	StagePublish Stage = "publish"

	// StageComplete indicates the full cycle succeeded.
	StageComplete Stage = "complete"
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	return string(s)
}

// Reading holds the extracted values for a single line.
//
// Reading is immutable after creation. The Voltage field is zero for
// [LineTotal]; the sensor reports a voltage on the combined channel but
// the bridge never reads it.
type Reading struct {
	// Line identifies the channel the values belong to.
	Line Line

	// Voltage is the line voltage in volts.
	Voltage float64

	// RealPower is the real power draw in watts.
	RealPower uint16

	// ReactivePower is the reactive power in volt-amps reactive.
	ReactivePower int16

	// EnergyImported is the cumulative imported energy in watt-seconds.
	EnergyImported uint64
}

// CycleResult holds the outcome of a single poll cycle.
//
// CycleResult is immutable after creation and contains all information
// about the cycle: what was read from the sensor, how much of it reached
// the store, and any error that stopped the cycle early.
type CycleResult struct {
	// CorrelationID ties the result to the bridge's log lines for the
	// same cycle.
	CorrelationID string

	// Stage is the phase the cycle reached.
	Stage Stage

	// SensorID is the device identifier from the payload, if present.
	SensorID string

	// Readings holds the extracted per-line values, ordered L1, L2, TOTAL.
	// Empty if the cycle failed before extraction completed.
	Readings []Reading

	// Published is the number of variables written to the store.
	Published int

	// StatusCode is the HTTP status code returned by the sensor.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the time taken to complete the HTTP request.
	Latency time.Duration

	// CheckedAt is the timestamp when the cycle started.
	CheckedAt time.Time

	// Error contains the error that ended the cycle early, if any.
	// nil indicates the full cycle succeeded.
	Error error
}
