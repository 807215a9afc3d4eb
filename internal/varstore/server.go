package varstore

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// writeTimeout bounds a single response write so a stalled client cannot
// pin a handler goroutine past shutdown.
const writeTimeout = 10 * time.Second

// Server accepts store protocol connections and serves a [Registry].
//
// Each connection gets its own goroutine and handles requests one at a time
// in arrival order. The server shuts down when the context passed to
// [Server.Start] is cancelled or [Server.Stop] is called.
type Server struct {
	registry *Registry
	persist  *DB
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc
	started  bool
	stopped  bool
	wg       sync.WaitGroup
}

// NewServer creates a protocol [Server] for the given registry.
//
// persist may be nil; when set, every accepted write is mirrored to the
// database after the registry update. The logger must not be nil.
func NewServer(registry *Registry, persist *DB, logger *slog.Logger) *Server {
	return &Server{
		registry: registry,
		persist:  persist,
		logger:   logger,
	}
}

// Start binds the listen address and begins accepting connections.
//
// The bind happens synchronously so address conflicts surface as an error
// here; accepting then proceeds in background goroutines until the context
// is cancelled. The address accepts the forms documented on [SplitAddress].
func (s *Server) Start(ctx context.Context, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped {
		return errors.New("server already started")
	}

	network, address, err := SplitAddress(addr)
	if err != nil {
		return err
	}

	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", addr, err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	s.listener = ln
	s.cancel = cancel
	s.started = true

	s.logger.Info("store listening", "network", network, "address", ln.Addr().String())

	// close the listener once the context ends so Accept unblocks
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-serverCtx.Done()
		_ = ln.Close()
	}()

	s.wg.Add(1)
	go s.acceptLoop(serverCtx, ln)

	return nil
}

// Addr returns the bound listen address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down and waits for all connections to drain.
// Safe to call multiple times; calling Stop before Start is a no-op.
func (s *Server) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// acceptLoop accepts connections until the listener closes.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn serves one client connection until it disconnects or the
// server shuts down.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	logger := s.logger.With(
		"conn_id", uuid.NewString(),
		"remote", conn.RemoteAddr().String(),
	)
	logger.Debug("client connected")
	defer logger.Debug("client disconnected")

	// unblock the pending read when the server shuts down
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer func() { _ = conn.Close() }()

	dec := json.NewDecoder(bufio.NewReader(conn))
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if err != io.EOF && ctx.Err() == nil {
				logger.Debug("read ended", "error", err)
			}
			return
		}

		resp := s.handle(req)

		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := enc.Encode(resp); err != nil {
			logger.Warn("failed to write response", "op", req.Op, "error", err)
			return
		}
		_ = conn.SetWriteDeadline(time.Time{})
	}
}

// handle dispatches a single request against the registry.
func (s *Server) handle(req request) response {
	switch req.Op {
	case opFind:
		h, err := s.registry.FindByName(req.Name)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		v, err := s.registry.Get(h)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return response{ID: req.ID, OK: true, Handle: h, Kind: v.Kind()}

	case opSet:
		v, err := ParseValue(req.Kind, req.Value)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		if err := s.registry.Set(req.Handle, v); err != nil {
			return errorResponse(req.ID, err)
		}
		s.persistValue(req.Handle, v)
		return response{ID: req.ID, OK: true}

	case opGet:
		v, err := s.registry.Get(req.Handle)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return response{ID: req.ID, OK: true, Handle: req.Handle, Kind: v.Kind(), Value: v.Number()}

	case opList:
		return response{ID: req.ID, OK: true, Vars: s.registry.List()}

	default:
		return errorResponse(req.ID, fmt.Errorf("unknown op %q", req.Op))
	}
}

// persistValue mirrors a successful write to the database, if configured.
// Persistence failures are logged, never surfaced to the writer.
func (s *Server) persistValue(h Handle, v Value) {
	if s.persist == nil {
		return
	}
	name, err := s.registry.Name(h)
	if err != nil {
		return
	}
	if err := s.persist.SaveValue(name, v); err != nil {
		s.logger.Warn("failed to persist variable", "name", name, "error", err)
	}
}

// errorResponse builds a protocol error response, mapping the package
// sentinels to their wire codes.
func errorResponse(id string, err error) response {
	code := codeBadRequest
	switch {
	case errors.Is(err, ErrNotFound):
		code = codeNotFound
	case errors.Is(err, ErrInvalidHandle):
		code = codeInvalidHandle
	case errors.Is(err, ErrTypeMismatch):
		code = codeTypeMismatch
	}
	return response{ID: id, OK: false, Code: code, Error: err.Error()}
}
