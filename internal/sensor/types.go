package sensor

// Sample is the top-level document served by the sensor at /current-sample.
//
// Only the fields the bridge consumes are declared; unknown fields in the
// payload are ignored by the JSON decoder.
type Sample struct {
	// SensorID is the device identifier, surfaced in verbose logs.
	SensorID string `json:"sensorId"`

	// Timestamp is the device-reported sample time, passed through untouched.
	Timestamp string `json:"timestamp"`

	// Channels holds the per-line measurements. The bridge reads the first
	// three entries: line 1, line 2, and the consumption total.
	Channels []Channel `json:"channels"`
}

// Channel is a single entry of the channels array.
//
// Measurement fields are pointers so that absence is distinguishable from a
// zero value; a missing field the bridge requires is a malformed payload.
type Channel struct {
	// Type is the device-assigned channel label (e.g. PHASE_A_CONSUMPTION).
	// Parsed for diagnostics only; channel identity is positional.
	Type string `json:"type"`

	// Ch is the device-assigned channel number, also diagnostic only.
	Ch *int `json:"ch"`

	// RealPower is the instantaneous real power in watts.
	RealPower *Number `json:"p_W"`

	// ReactivePower is the instantaneous reactive power in volt-amps reactive.
	ReactivePower *Number `json:"q_VAR"`

	// Voltage is the line voltage in volts. The total channel does not carry
	// a meaningful voltage and may omit it.
	Voltage *Number `json:"v_V"`

	// EnergyImported is the cumulative imported energy in watt-seconds.
	EnergyImported *Number `json:"eImp_Ws"`

	// EnergyExported is the cumulative exported energy in watt-seconds.
	// Decoded for completeness; the bridge does not publish it.
	EnergyExported *Number `json:"eExp_Ws"`
}
