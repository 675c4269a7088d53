package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/getmockd/mqfacade/pkg/admin"
	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/config"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/instance"
	"github.com/getmockd/mqfacade/pkg/manager"
	"github.com/getmockd/mqfacade/pkg/metrics"
	"github.com/getmockd/mqfacade/pkg/pcf"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// server is the wired service: pool, caches, registry and admin API.
type server struct {
	cfg     *config.Config
	log     *slog.Logger
	pool    *pool.Pool
	cache   *cache.Layer
	mgr     *manager.Manager
	metrics *metrics.Registry
	api     *admin.API
}

// newServer wires every component for cfg. Nothing is started and no
// connection is made.
func newServer(cfg *config.Config, log *slog.Logger, dialer pcf.Dialer, version string) (*server, error) {
	layer, err := cache.NewLayer(cfg.Cache.Layer(), cache.WithLogger(log.With("component", "cache")))
	if err != nil {
		return nil, fmt.Errorf("creating cache layer: %w", err)
	}

	p := pool.New(dialer,
		pool.WithOptions(cfg.Pool.Options()),
		pool.WithLogger(log.With("component", "pool")),
		pool.WithInstallObserver(func(d endpoint.Descriptor) { layer.InitKey(d.Key) }),
	)

	dir := endpoint.NewDirectory()
	reg := instance.NewRegistry(p, layer, dir, instance.WithLogger(log.With("component", "instance")))
	mgr := manager.New(p, reg, dir, log.With("component", "manager"))

	m := metrics.NewRegistry(version)
	if err := m.Register("pool", p.Collector()); err != nil {
		layer.Close()
		return nil, err
	}
	if err := m.Register("cache", layer.Collector()); err != nil {
		layer.Close()
		return nil, err
	}

	api := admin.NewAPI(cfg.Server.Port, mgr, layer,
		admin.WithLogger(log.With("component", "admin")),
		admin.WithMetrics(m),
		admin.WithVersion(version),
		admin.WithTimeouts(cfg.Server.ReadTimeout.Std(), cfg.Server.WriteTimeout.Std()),
	)

	return &server{
		cfg:     cfg,
		log:     log,
		pool:    p,
		cache:   layer,
		mgr:     mgr,
		metrics: m,
		api:     api,
	}, nil
}

// run installs the configured pools, serves on ln until ctx is done and
// then shuts everything down. Pools that fail to install are logged and
// retried on first use.
func (s *server) run(ctx context.Context, ln net.Listener) error {
	if err := s.mgr.InstallConfigured(ctx, s.cfg.Pools); err != nil {
		s.log.Warn("some configured pools could not be installed", "error", err)
	}

	s.api.Serve(ln)
	<-ctx.Done()
	s.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.shutdown(shutdownCtx)
}

// shutdown stops the admin API first so no request borrows a connection
// from a closing pool.
func (s *server) shutdown(ctx context.Context) error {
	var errs []error
	if err := s.api.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("admin API shutdown: %w", err))
	}
	if err := s.mgr.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	s.cache.Close()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}
