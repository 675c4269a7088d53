// Package manager installs sub-pools from configuration and resolves
// lookups, given as an endpoint key or a configured pool name, to
// query instances.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	cpool "github.com/sourcegraph/conc/pool"

	"github.com/getmockd/mqfacade/pkg/config"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/instance"
	"github.com/getmockd/mqfacade/pkg/logging"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// installWorkers bounds concurrent connects during InstallConfigured.
const installWorkers = 4

// Manager owns the connection pool, the pool-name directory and the
// instance registry.
type Manager struct {
	pool *pool.Pool
	reg  *instance.Registry
	dir  *endpoint.Directory
	log  *slog.Logger
}

// New returns a manager. A nil directory gets an empty one.
func New(p *pool.Pool, reg *instance.Registry, dir *endpoint.Directory, log *slog.Logger) *Manager {
	if dir == nil {
		dir = endpoint.NewDirectory()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{pool: p, reg: reg, dir: dir, log: log}
}

// Pool returns the connection pool.
func (m *Manager) Pool() *pool.Pool { return m.pool }

// Registry returns the instance registry.
func (m *Manager) Registry() *instance.Registry { return m.reg }

// Directory returns the pool-name directory.
func (m *Manager) Directory() *endpoint.Directory { return m.dir }

// InstallConfigured installs every configured sub-pool. A definition that
// fails to connect is logged and skipped, but its name is still bound so a
// later GetOrCreate by name retries the install. The returned error joins
// every failure.
func (m *Manager) InstallConfigured(ctx context.Context, defs []config.PoolDef) error {
	p := cpool.New().WithErrors().WithMaxGoroutines(installWorkers)
	for _, def := range defs {
		desc, err := def.Descriptor()
		if err != nil {
			m.log.Error("invalid pool definition", "pool", def.PoolName, "error", err)
			p.Go(func() error { return err })
			continue
		}
		if err := m.dir.Bind(desc); err != nil {
			m.log.Error("pool name rejected", "pool", desc.PoolName, "key", desc.Key.String(), "error", err)
			p.Go(func() error { return err })
			continue
		}
		p.Go(func() error {
			if _, err := m.pool.EnsureSubPool(ctx, desc); err != nil {
				m.log.Warn("sub-pool install failed, will retry on first use",
					"pool", desc.PoolName, "key", desc.Key.String(), "error", err)
				return err
			}
			return nil
		})
	}
	err := p.Wait()
	m.log.Info("configured pools processed", "count", len(defs), "installed", len(m.pool.Keys()))
	return err
}

// Install installs a sub-pool for desc and binds its name unless the
// descriptor was synthesized.
func (m *Manager) Install(ctx context.Context, desc endpoint.Descriptor) (bool, error) {
	if desc.Key == nil {
		return false, mqerr.Errorf(mqerr.InvalidArgument, "manager.install", "descriptor %q has no key", desc.PoolName)
	}
	if !desc.Synthesized() && desc.PoolName != "" {
		if err := m.dir.Bind(desc); err != nil {
			return false, err
		}
	}
	return m.pool.EnsureSubPool(ctx, desc)
}

// Resolve maps lookup to a key and, when one is bound, its pool name.
// Nothing is created.
func (m *Manager) Resolve(lookup string) (*endpoint.Key, string, error) {
	const op = "manager.resolve"
	lookup = strings.TrimSpace(lookup)
	if lookup == "" {
		return nil, "", mqerr.Errorf(mqerr.InvalidArgument, op, "empty lookup")
	}
	if key, err := endpoint.Parse(lookup); err == nil {
		name, _ := m.dir.NameOf(key)
		return key, name, nil
	}
	key, ok := m.dir.Lookup(lookup)
	if !ok {
		return nil, "", mqerr.Errorf(mqerr.NotFound, op, "%q is neither an endpoint key nor a configured pool name", lookup)
	}
	return key, lookup, nil
}

// GetOrCreate returns the instance for lookup, installing its sub-pool on
// first use.
func (m *Manager) GetOrCreate(ctx context.Context, lookup string) (*instance.Instance, error) {
	key, _, err := m.Resolve(lookup)
	if err != nil {
		return nil, err
	}
	return m.reg.GetByKey(ctx, key)
}

// Shutdown waits for background tasks, then closes the pool. Tasks still
// running when ctx ends are canceled.
func (m *Manager) Shutdown(ctx context.Context) error {
	sup := m.reg.Supervisor()
	waitErr := sup.Wait(ctx)
	if waitErr != nil {
		m.log.Warn("background tasks still running at shutdown", "error", waitErr)
		sup.Stop()
	}
	return errors.Join(waitErr, m.pool.Shutdown(ctx))
}
