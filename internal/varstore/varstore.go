package varstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Sentinel errors returned by store operations, on both the client and the
// server side of the protocol. Check with errors.Is.
var (
	// ErrNotFound indicates a name lookup for a variable that was never
	// declared in the store.
	ErrNotFound = errors.New("variable not found")

	// ErrInvalidHandle indicates an operation on a handle the store did not
	// issue, including the zero handle.
	ErrInvalidHandle = errors.New("invalid variable handle")

	// ErrTypeMismatch indicates a write whose value kind differs from the
	// variable's declared kind.
	ErrTypeMismatch = errors.New("variable type mismatch")
)

// Handle is an opaque reference to a declared variable, issued by name
// lookup. Handles are stable for the lifetime of the store process.
//
// The zero handle is never issued and is always invalid.
type Handle uint32

// InvalidHandle is the zero [Handle], returned by failed lookups.
const InvalidHandle Handle = 0

// Kind identifies the declared type of a variable.
type Kind string

const (
	// KindFloat is a 64-bit floating point variable (volts).
	KindFloat Kind = "float"

	// KindUint16 is an unsigned 16-bit integer variable (watts).
	KindUint16 Kind = "u16"

	// KindInt16 is a signed 16-bit integer variable (volt-amps reactive).
	KindInt16 Kind = "i16"

	// KindUint64 is an unsigned 64-bit integer variable (watt-seconds).
	KindUint64 Kind = "u64"
)

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindFloat, KindUint16, KindInt16, KindUint64:
		return true
	default:
		return false
	}
}

// String returns the kind's wire name.
func (k Kind) String() string {
	return string(k)
}

// Value is a typed variable value.
//
// Value is an immutable tagged union: construct one with [Float], [Uint16],
// [Int16], or [Uint64], or parse one from its wire form with [ParseValue].
// Values are comparable; two values are equal when their kind and payload
// match.
type Value struct {
	kind Kind
	f    float64
	i    int64
	u    uint64
}

// Float creates a [KindFloat] value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Uint16 creates a [KindUint16] value.
func Uint16(v uint16) Value { return Value{kind: KindUint16, u: uint64(v)} }

// Int16 creates a [KindInt16] value.
func Int16(v int16) Value { return Value{kind: KindInt16, i: int64(v)} }

// Uint64 creates a [KindUint64] value.
func Uint64(v uint64) Value { return Value{kind: KindUint64, u: v} }

// Kind returns the value's kind. The zero Value has an empty, invalid kind.
func (v Value) Kind() Kind {
	return v.kind
}

// IsZero reports whether v is the zero Value, i.e. carries no kind.
func (v Value) IsZero() bool {
	return v.kind == ""
}

// Number returns the value's wire form as a raw numeric token.
//
// Unsigned 64-bit counters exceed float64 precision, so the wire protocol
// and the persistence layer always carry values as exact decimal tokens
// rather than parsed doubles.
func (v Value) Number() json.Number {
	switch v.kind {
	case KindFloat:
		return json.Number(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindUint16, KindUint64:
		return json.Number(strconv.FormatUint(v.u, 10))
	case KindInt16:
		return json.Number(strconv.FormatInt(v.i, 10))
	default:
		return json.Number("0")
	}
}

// String returns the value's decimal representation.
func (v Value) String() string {
	return v.Number().String()
}

// MarshalJSON implements json.Marshaler, emitting the raw numeric token.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.Number()), nil
}

// ParseValue parses a wire-form numeric token into a [Value] of the given
// kind, enforcing the kind's range.
func ParseValue(kind Kind, num json.Number) (Value, error) {
	s := string(num)
	switch kind {
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid float value %q", s)
		}
		return Float(f), nil
	case KindUint16:
		u, err := strconv.ParseUint(s, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("invalid u16 value %q", s)
		}
		return Uint16(uint16(u)), nil
	case KindInt16:
		i, err := strconv.ParseInt(s, 10, 16)
		if err != nil {
			return Value{}, fmt.Errorf("invalid i16 value %q", s)
		}
		return Int16(int16(i)), nil
	case KindUint64:
		u, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid u64 value %q", s)
		}
		return Uint64(u), nil
	default:
		return Value{}, fmt.Errorf("unknown kind %q", kind)
	}
}

// zeroValue returns the zero value of a kind, used when a variable is
// declared without an initial value.
func zeroValue(kind Kind) Value {
	switch kind {
	case KindFloat:
		return Float(0)
	case KindUint16:
		return Uint16(0)
	case KindInt16:
		return Int16(0)
	case KindUint64:
		return Uint64(0)
	default:
		return Value{}
	}
}

// Client is the store interface the bridge publishes through.
//
// Implementations must be safe for sequential use from the polling loop.
// [Conn] is the production implementation; tests may substitute their own.
type Client interface {
	// FindByName resolves a variable name to its handle.
	// Returns an error wrapping [ErrNotFound] for undeclared names.
	FindByName(ctx context.Context, name string) (Handle, error)

	// Set writes a value to the variable identified by handle.
	Set(ctx context.Context, h Handle, v Value) error

	// Close releases the client's resources.
	Close() error
}
