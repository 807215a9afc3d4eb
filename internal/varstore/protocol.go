package varstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// The store protocol is newline-delimited JSON over a stream socket: one
// request object per line, answered by exactly one response object carrying
// the same id. Values travel as raw decimal tokens so u64 counters survive
// the trip exactly.

// protocol operations
const (
	opFind = "find"
	opSet  = "set"
	opGet  = "get"
	opList = "list"
)

// protocol error codes, mapped to the package sentinels on the client side
const (
	codeNotFound      = "not_found"
	codeInvalidHandle = "invalid_handle"
	codeTypeMismatch  = "type_mismatch"
	codeBadRequest    = "bad_request"
)

// request is a single protocol request frame.
type request struct {
	ID     string      `json:"id"`
	Op     string      `json:"op"`
	Name   string      `json:"name,omitempty"`
	Handle Handle      `json:"handle,omitempty"`
	Kind   Kind        `json:"kind,omitempty"`
	Value  json.Number `json:"value,omitempty"`
}

// response is a single protocol response frame.
type response struct {
	ID     string      `json:"id"`
	OK     bool        `json:"ok"`
	Code   string      `json:"code,omitempty"`
	Error  string      `json:"error,omitempty"`
	Handle Handle      `json:"handle,omitempty"`
	Kind   Kind        `json:"kind,omitempty"`
	Value  json.Number `json:"value,omitempty"`
	Vars   []VarInfo   `json:"vars,omitempty"`
}

// VarInfo is the public description of one declared variable, returned by
// list operations and the HTTP API. The value travels as a raw decimal
// token, like every value in the protocol.
type VarInfo struct {
	Name      string      `json:"name"`
	Handle    Handle      `json:"handle"`
	Kind      Kind        `json:"kind"`
	Value     json.Number `json:"value"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SplitAddress parses a store address into a network and dial address.
//
// Accepted forms:
//
//	tcp://host:port
//	unix:///path/to/socket
//	host:port          (tcp implied)
func SplitAddress(addr string) (network, address string, err error) {
	switch {
	case strings.TrimSpace(addr) == "":
		return "", "", fmt.Errorf("store address is empty")
	case strings.HasPrefix(addr, "tcp://"):
		return "tcp", strings.TrimPrefix(addr, "tcp://"), nil
	case strings.HasPrefix(addr, "unix://"):
		return "unix", strings.TrimPrefix(addr, "unix://"), nil
	case strings.Contains(addr, "://"):
		scheme := addr[:strings.Index(addr, "://")]
		return "", "", fmt.Errorf("unsupported store address scheme %q (use tcp:// or unix://)", scheme)
	default:
		return "tcp", addr, nil
	}
}
