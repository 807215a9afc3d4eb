package varstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// httpShutdownTimeout bounds the graceful drain of in-flight HTTP requests.
const httpShutdownTimeout = 5 * time.Second

// HTTPServer exposes a read-only HTTP view of a [Registry] so sibling
// processes and dashboards can observe published values without speaking
// the store protocol.
//
// Routes:
//
//	GET /healthz      liveness plus variable count
//	GET /vars         all declared variables
//	GET /vars/*name   one variable by its full name (names begin with /)
type HTTPServer struct {
	registry   *Registry
	addr       string
	logger     *slog.Logger
	httpServer *http.Server
}

// NewHTTPServer creates an [HTTPServer] listening on addr (host:port).
// The server is not started until [HTTPServer.Start] is called.
func NewHTTPServer(registry *Registry, addr string, logger *slog.Logger) *HTTPServer {
	return &HTTPServer{
		registry: registry,
		addr:     addr,
		logger:   logger,
	}
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listen address is bound, so
// port conflicts surface here. The server drains gracefully when the
// context is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	// create listener first to verify address availability synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind http address %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler: s.router(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.logger.Info("http api listening", "address", ln.Addr().String())

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listen address: the configured one before
// [HTTPServer.Start], the bound one (with any port 0 resolved) after.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// router builds the gin engine with the read-only routes.
func (s *HTTPServer) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/vars", s.handleList)
	// variable names begin with a slash, so the wildcard param carries the
	// full name as-is
	router.GET("/vars/*name", s.handleGet)

	return router
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"vars":   s.registry.Len(),
	})
}

func (s *HTTPServer) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"vars": s.registry.List()})
}

func (s *HTTPServer) handleGet(c *gin.Context) {
	name := c.Param("name")

	h, err := s.registry.FindByName(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("variable %q is not declared", name)})
		return
	}

	v, err := s.registry.Get(h)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, VarInfo{
		Name:   name,
		Handle: h,
		Kind:   v.Kind(),
		Value:  v.Number(),
	})
}
