package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Number is a JSON scalar that may arrive either as a number or as a quoted
// numeric string. Some sensor firmware revisions quote large counters, so
// both forms decode to the same value.
//
// The raw token is kept as-is; the typed accessors perform range-checked
// conversion on demand.
type Number string

// UnmarshalJSON implements json.Unmarshaler, accepting numbers and numeric
// strings. Anything else is rejected.
func (n *Number) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("string %q is not numeric", s)
		}
		*n = Number(s)
		return nil
	}

	var jn json.Number
	if err := json.Unmarshal(data, &jn); err != nil {
		return err
	}
	*n = Number(jn.String())
	return nil
}

// MarshalJSON implements json.Marshaler, emitting the raw numeric token.
func (n Number) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("0"), nil
	}
	if _, err := strconv.ParseFloat(string(n), 64); err != nil {
		return nil, fmt.Errorf("number holds non-numeric token %q", string(n))
	}
	return []byte(n), nil
}

// String returns the raw numeric token.
func (n Number) String() string {
	return string(n)
}

// Float64 converts the value to a float64.
func (n Number) Float64() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid number: %q", string(n))
	}
	return f, nil
}

// Int64 converts the value to an int64. Fractional values are truncated
// toward zero.
func (n Number) Int64() (int64, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value %s out of range for int64", string(n))
	}
	return int64(f), nil
}

// Uint64 converts the value to a uint64, rejecting negatives.
func (n Number) Uint64() (uint64, error) {
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return u, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	if f < 0 || f >= math.MaxUint64 {
		return 0, fmt.Errorf("value %s out of range for uint64", string(n))
	}
	return uint64(f), nil
}

// Uint16 converts the value to a uint16, rejecting out-of-range values.
func (n Number) Uint16() (uint16, error) {
	i, err := n.Int64()
	if err != nil {
		return 0, err
	}
	if i < 0 || i > math.MaxUint16 {
		return 0, fmt.Errorf("value %d out of range for uint16", i)
	}
	return uint16(i), nil
}

// Int16 converts the value to an int16, rejecting out-of-range values.
func (n Number) Int16() (int16, error) {
	i, err := n.Int64()
	if err != nil {
		return 0, err
	}
	if i < math.MinInt16 || i > math.MaxInt16 {
		return 0, fmt.Errorf("value %d out of range for int16", i)
	}
	return int16(i), nil
}
