package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedPayload is the sentinel wrapped by every extraction failure:
// empty input, invalid JSON, a missing or short channels array, or a channel
// missing a required field. Check with errors.Is.
var ErrMalformedPayload = errors.New("malformed sensor payload")

// minChannels is the number of leading channel entries the bridge requires:
// line 1, line 2, and the consumption total.
const minChannels = 3

// Line identifies which power line a reading belongs to.
type Line int

const (
	// Line1 is the first mains line (channels[0]).
	Line1 Line = iota

	// Line2 is the second mains line (channels[1]).
	Line2

	// LineTotal is the combined consumption channel (channels[2]).
	LineTotal
)

// String returns the variable path segment for the line: L1, L2, or TOTAL.
func (l Line) String() string {
	switch l {
	case Line1:
		return "L1"
	case Line2:
		return "L2"
	case LineTotal:
		return "TOTAL"
	default:
		return fmt.Sprintf("Line(%d)", int(l))
	}
}

// ChannelReading holds the validated, range-checked measurements of one
// channel, converted to the widths the variable store expects.
type ChannelReading struct {
	// Line identifies the channel.
	Line Line

	// Voltage is the line voltage in volts. Zero for [LineTotal]; the total
	// channel's voltage is never read.
	Voltage float64

	// RealPower is the real power draw in watts.
	RealPower uint16

	// ReactivePower is the reactive power in volt-amps reactive.
	ReactivePower int16

	// EnergyImported is the cumulative imported energy in watt-seconds.
	EnergyImported uint64
}

// Readings is the result of a successful extraction.
type Readings struct {
	// SensorID is the device identifier from the payload, if present.
	SensorID string

	// Timestamp is the device-reported sample time, if present.
	Timestamp string

	// Channels holds exactly one reading per line, ordered L1, L2, TOTAL.
	Channels []ChannelReading
}

// Extract decodes a /current-sample payload into per-line readings.
//
// The payload must be a JSON object with a channels array of at least three
// entries. Entries are identified by position: index 0 is line 1, index 1 is
// line 2, index 2 is the total. All three must carry p_W, q_VAR, and
// eImp_Ws; the two line channels must additionally carry v_V.
//
// Extract never panics on arbitrary input. Every failure wraps
// [ErrMalformedPayload] and names the offending channel and field.
func Extract(data []byte) (Readings, error) {
	if len(data) == 0 {
		return Readings{}, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	var sample Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return Readings{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	if sample.Channels == nil {
		return Readings{}, fmt.Errorf("%w: no channels array", ErrMalformedPayload)
	}
	if len(sample.Channels) < minChannels {
		return Readings{}, fmt.Errorf("%w: expected at least %d channels, got %d",
			ErrMalformedPayload, minChannels, len(sample.Channels))
	}

	out := Readings{
		SensorID:  sample.SensorID,
		Timestamp: sample.Timestamp,
		Channels:  make([]ChannelReading, 0, minChannels),
	}

	for i, line := range []Line{Line1, Line2, LineTotal} {
		ch := sample.Channels[i]
		reading := ChannelReading{Line: line}

		if ch.RealPower == nil {
			return Readings{}, missingField(i, "p_W")
		}
		p, err := ch.RealPower.Uint16()
		if err != nil {
			return Readings{}, badField(i, "p_W", err)
		}
		reading.RealPower = p

		if ch.ReactivePower == nil {
			return Readings{}, missingField(i, "q_VAR")
		}
		q, err := ch.ReactivePower.Int16()
		if err != nil {
			return Readings{}, badField(i, "q_VAR", err)
		}
		reading.ReactivePower = q

		if ch.EnergyImported == nil {
			return Readings{}, missingField(i, "eImp_Ws")
		}
		e, err := ch.EnergyImported.Uint64()
		if err != nil {
			return Readings{}, badField(i, "eImp_Ws", err)
		}
		reading.EnergyImported = e

		// the total channel's voltage is meaningless and is never read
		if line != LineTotal {
			if ch.Voltage == nil {
				return Readings{}, missingField(i, "v_V")
			}
			v, err := ch.Voltage.Float64()
			if err != nil {
				return Readings{}, badField(i, "v_V", err)
			}
			reading.Voltage = v
		}

		out.Channels = append(out.Channels, reading)
	}

	return out, nil
}

func missingField(channel int, field string) error {
	return fmt.Errorf("%w: channel %d: missing field %q", ErrMalformedPayload, channel, field)
}

func badField(channel int, field string, err error) error {
	return fmt.Errorf("%w: channel %d: field %q: %v", ErrMalformedPayload, channel, field, err)
}
