package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/logging"
	"github.com/getmockd/mqfacade/pkg/manager"
	"github.com/getmockd/mqfacade/pkg/metrics"
)

// ShutdownTimeout bounds Stop when the caller's context has no deadline.
const ShutdownTimeout = 5 * time.Second

// API exposes queue, topic and subscription queries and cache management
// over HTTP.
type API struct {
	mgr     *manager.Manager
	cache   *cache.Layer
	metrics *metrics.Registry

	httpServer   *http.Server
	handler      http.Handler
	port         int
	readTimeout  time.Duration
	writeTimeout time.Duration
	startTime    time.Time
	version      string
	log          *slog.Logger
}

// NewAPI creates the admin API. The server is not started.
func NewAPI(port int, mgr *manager.Manager, layer *cache.Layer, opts ...Option) *API {
	a := &API{
		mgr:          mgr,
		cache:        layer,
		port:         port,
		readTimeout:  30 * time.Second,
		writeTimeout: 30 * time.Second,
		startTime:    time.Now(),
		version:      "dev",
		log:          logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metrics.NewRegistry(a.version)
	}

	mux := http.NewServeMux()
	a.registerRoutes(mux)
	a.handler = a.withMiddleware(mux)

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      a.handler,
		ReadTimeout:  a.readTimeout,
		WriteTimeout: a.writeTimeout,
	}
	return a
}

// Handler returns the routed handler with middleware applied.
func (a *API) Handler() http.Handler { return a.handler }

// Metrics returns the metrics registry served on /metrics.
func (a *API) Metrics() *metrics.Registry { return a.metrics }

// withMiddleware wraps the mux. Order, outermost first: request id,
// access log and metrics, recovery, security headers.
func (a *API) withMiddleware(h http.Handler) http.Handler {
	h = securityHeaders(h)
	h = a.recovery(h)
	h = a.observe(h)
	return requestID(h)
}

// Start listens on the configured port and serves in the background.
func (a *API) Start() error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("admin API listen on %s: %w", a.httpServer.Addr, err)
	}
	a.Serve(ln)
	return nil
}

// Serve serves on ln in the background.
func (a *API) Serve(ln net.Listener) {
	a.startTime = time.Now()
	a.log.Info("starting admin API", "addr", ln.Addr().String())
	go func() {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("admin API error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server.
func (a *API) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ShutdownTimeout)
		defer cancel()
	}
	return a.httpServer.Shutdown(ctx)
}

// Uptime returns the API uptime in seconds.
func (a *API) Uptime() int {
	return int(time.Since(a.startTime).Seconds())
}
