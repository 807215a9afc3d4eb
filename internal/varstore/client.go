package varstore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultRequestTimeout bounds a protocol round trip when the caller's
// context carries no deadline.
const defaultRequestTimeout = 5 * time.Second

// Conn is a [Client] speaking the store protocol over a single connection.
//
// Requests are serialized: one round trip is in flight at a time, guarded by
// a mutex. The bridge's polling loop is sequential so this never contends in
// practice; it simply keeps the protocol framing trivial.
//
// A round trip that fails at the transport level leaves the stream in an
// unknown state, so the connection is discarded and the next operation
// redials. Error responses from the store travel on an intact stream and
// leave the connection open.
type Conn struct {
	mu      sync.Mutex
	addr    string // as given to Dial, for error messages
	network string
	address string
	closed  bool
	conn    net.Conn
	enc     *json.Encoder
	dec     *json.Decoder
}

var _ Client = (*Conn)(nil)

// Dial connects to a variable store.
//
// The address accepts the forms documented on [SplitAddress]: a tcp:// or
// unix:// URL, or a bare host:port. The context bounds the initial dial only;
// per-request deadlines come from the contexts passed to each operation, and
// the same deadline bounds any reconnect the operation performs.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	network, address, err := SplitAddress(addr)
	if err != nil {
		return nil, err
	}

	c := &Conn{addr: addr, network: network, address: address}
	c.mu.Lock()
	err = c.connectLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c, nil
}

// FindByName resolves a variable name to its handle.
func (c *Conn) FindByName(ctx context.Context, name string) (Handle, error) {
	resp, err := c.do(ctx, request{Op: opFind, Name: name})
	if err != nil {
		return InvalidHandle, err
	}
	return resp.Handle, nil
}

// Set writes a value to the variable identified by handle.
func (c *Conn) Set(ctx context.Context, h Handle, v Value) error {
	_, err := c.do(ctx, request{Op: opSet, Handle: h, Kind: v.Kind(), Value: v.Number()})
	return err
}

// Get returns the current value of the variable identified by handle.
//
// The bridge never reads; Get exists for tooling and tests.
func (c *Conn) Get(ctx context.Context, h Handle) (Value, error) {
	resp, err := c.do(ctx, request{Op: opGet, Handle: h})
	if err != nil {
		return Value{}, err
	}
	v, err := ParseValue(resp.Kind, resp.Value)
	if err != nil {
		return Value{}, fmt.Errorf("store returned unreadable value: %w", err)
	}
	return v, nil
}

// List returns all declared variables.
func (c *Conn) List(ctx context.Context) ([]VarInfo, error) {
	resp, err := c.do(ctx, request{Op: opList})
	if err != nil {
		return nil, err
	}
	return resp.Vars, nil
}

// Close closes the underlying connection. Operations on a closed Conn fail.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.enc = nil
	c.dec = nil
	return err
}

// do performs one request/response round trip, reconnecting first if an
// earlier round trip broke the connection.
func (c *Conn) do(ctx context.Context, req request) (response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return response{}, net.ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultRequestTimeout)
	}

	if c.conn == nil {
		dialCtx, cancel := context.WithDeadline(ctx, deadline)
		err := c.connectLocked(dialCtx)
		cancel()
		if err != nil {
			return response{}, err
		}
	}

	req.ID = uuid.NewString()

	if err := c.conn.SetDeadline(deadline); err != nil {
		c.dropLocked()
		return response{}, fmt.Errorf("failed to arm %s deadline: %w", req.Op, err)
	}

	if err := c.enc.Encode(req); err != nil {
		c.dropLocked()
		return response{}, fmt.Errorf("failed to send %s request: %w", req.Op, err)
	}

	var resp response
	if err := c.dec.Decode(&resp); err != nil {
		c.dropLocked()
		return response{}, fmt.Errorf("failed to read %s response: %w", req.Op, err)
	}
	_ = c.conn.SetDeadline(time.Time{})

	if resp.ID != req.ID {
		// a mispaired frame means the stream can no longer be trusted
		c.dropLocked()
		return response{}, fmt.Errorf("store response id %q does not match request id %q", resp.ID, req.ID)
	}
	if !resp.OK {
		return response{}, responseError(resp)
	}
	return resp, nil
}

// connectLocked dials the store and installs a fresh stream. Caller holds c.mu.
func (c *Conn) connectLocked(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, c.network, c.address)
	if err != nil {
		return fmt.Errorf("failed to connect to store at %s: %w", c.addr, err)
	}
	c.conn = conn
	c.enc = json.NewEncoder(conn)
	c.dec = json.NewDecoder(bufio.NewReader(conn))
	return nil
}

// dropLocked discards the connection after a transport failure, leaving the
// next operation to redial. Caller holds c.mu.
func (c *Conn) dropLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.enc = nil
	c.dec = nil
}

// responseError maps a protocol error response to the package sentinels.
func responseError(resp response) error {
	switch resp.Code {
	case codeNotFound:
		return fmt.Errorf("%s: %w", resp.Error, ErrNotFound)
	case codeInvalidHandle:
		return fmt.Errorf("%s: %w", resp.Error, ErrInvalidHandle)
	case codeTypeMismatch:
		return fmt.Errorf("%s: %w", resp.Error, ErrTypeMismatch)
	default:
		return fmt.Errorf("store error: %s", resp.Error)
	}
}
