// Package rxbuf provides the reusable receive buffer that HTTP response
// bodies are streamed into.
//
// A [Buffer] is allocated once per polling loop and reset at the start of
// each cycle. Capacity acquired for a large response is retained across
// resets, so steady-state polling settles into zero-allocation reads after
// the first few cycles.
package rxbuf

import (
	"errors"
	"fmt"
)

// DefaultMaxSize is the response size limit applied when [New] is called
// with a non-positive max. 1MB is far beyond any sensor payload; the limit
// exists to bound memory if a misconfigured address returns something huge.
const DefaultMaxSize = 1 << 20 // 1MB

// ErrTooLarge is returned by [Buffer.Write] when accepting the chunk would
// push the buffered content past the configured size limit. The content
// written before the oversized chunk remains intact.
var ErrTooLarge = errors.New("receive buffer limit exceeded")

// Buffer is a growable byte accumulator implementing [io.Writer].
//
// Buffer is designed for the poll cycle: stream a response body in with
// successive Write calls, read it back with [Buffer.Bytes], then [Buffer.Reset]
// before the next cycle. Resetting truncates the content but keeps the
// underlying capacity, so the buffer only ever grows.
//
// Buffer is not safe for concurrent use; the polling loop is sequential.
type Buffer struct {
	buf []byte
	max int
}

// New creates a [Buffer] with the given size limit in bytes.
// A non-positive max selects [DefaultMaxSize].
func New(max int) *Buffer {
	if max <= 0 {
		max = DefaultMaxSize
	}
	return &Buffer{max: max}
}

// Write appends p to the buffer, growing it as needed.
//
// If the write would exceed the configured size limit, nothing is appended
// and the error wraps [ErrTooLarge]. Otherwise Write always succeeds and
// returns len(p).
func (b *Buffer) Write(p []byte) (int, error) {
	if len(b.buf)+len(p) > b.max {
		return 0, fmt.Errorf("write of %d bytes onto %d buffered exceeds %d byte limit: %w",
			len(p), len(b.buf), b.max, ErrTooLarge)
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Reset truncates the buffer to zero length, retaining capacity.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
}

// Bytes returns the accumulated content.
//
// The returned slice aliases the buffer's storage and is only valid until
// the next Write or Reset. Callers that need the content beyond the current
// cycle must copy it.
func (b *Buffer) Bytes() []byte {
	return b.buf
}

// String returns the accumulated content as a string.
func (b *Buffer) String() string {
	return string(b.buf)
}

// Len returns the number of bytes currently buffered.
func (b *Buffer) Len() int {
	return len(b.buf)
}

// Cap returns the current capacity of the underlying storage.
func (b *Buffer) Cap() int {
	return cap(b.buf)
}
