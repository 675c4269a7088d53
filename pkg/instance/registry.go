package instance

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getmockd/mqfacade/pkg/cache"
	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/logging"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pool"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry's logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithWarmup enables or disables the background load of the queue and topic
// name caches when an instance is created. It is on by default.
func WithWarmup(enabled bool) Option {
	return func(r *Registry) { r.warmup = enabled }
}

// WithSnapshotWorkers bounds the concurrent attribute reads of
// QueueSnapshot.
func WithSnapshotWorkers(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.snapshotWorkers = n
		}
	}
}

// WithSupervisor replaces the registry's task supervisor.
func WithSupervisor(s *Supervisor) Option {
	return func(r *Registry) {
		if s != nil {
			r.sup = s
		}
	}
}

type entrySlot struct {
	mu   sync.Mutex
	inst atomic.Pointer[Instance]
}

// Registry holds one Instance per endpoint key.
type Registry struct {
	pool  *pool.Pool
	cache *cache.Layer
	dir   *endpoint.Directory
	log   *slog.Logger
	sup   *Supervisor

	warmup          bool
	snapshotWorkers int

	entries sync.Map // *endpoint.Key -> *entrySlot
}

// NewRegistry returns an empty registry.
func NewRegistry(p *pool.Pool, c *cache.Layer, dir *endpoint.Directory, opts ...Option) *Registry {
	r := &Registry{
		pool:            p,
		cache:           c,
		dir:             dir,
		log:             logging.Nop(),
		warmup:          true,
		snapshotWorkers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dir == nil {
		r.dir = endpoint.NewDirectory()
	}
	if r.sup == nil {
		r.sup = NewSupervisor(r.log.With("component", "supervisor"))
	}
	return r
}

// Supervisor returns the supervisor running warm-up tasks.
func (r *Registry) Supervisor() *Supervisor { return r.sup }

// Lookup returns the instance for key if it has been created.
func (r *Registry) Lookup(key *endpoint.Key) (*Instance, bool) {
	v, ok := r.entries.Load(key)
	if !ok {
		return nil, false
	}
	inst := v.(*entrySlot).inst.Load()
	return inst, inst != nil
}

// GetByKey returns the instance for key, creating it on first use. Only
// one caller per key builds the instance; the others wait for it. A failed
// build is not remembered.
func (r *Registry) GetByKey(ctx context.Context, key *endpoint.Key) (*Instance, error) {
	if key == nil {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, "instance.get", "nil key")
	}
	v, _ := r.entries.LoadOrStore(key, &entrySlot{})
	slot := v.(*entrySlot)
	if inst := slot.inst.Load(); inst != nil {
		return inst, nil
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	if inst := slot.inst.Load(); inst != nil {
		return inst, nil
	}
	inst, err := r.build(ctx, key)
	if err != nil {
		return nil, err
	}
	slot.inst.Store(inst)
	r.log.Info("instance created", "key", key.String(), "pool", inst.desc.PoolName, "qmgr", inst.qmgr)
	if r.warmup {
		r.startWarmup(inst)
	}
	return inst, nil
}

// GetByName resolves name through the directory. An unknown name returns
// nil, nil when nilIfNotFound is set and NotFound otherwise.
func (r *Registry) GetByName(ctx context.Context, name string, nilIfNotFound bool) (*Instance, error) {
	key, ok := r.dir.Lookup(strings.TrimSpace(name))
	if !ok {
		if nilIfNotFound {
			return nil, nil
		}
		return nil, mqerr.Errorf(mqerr.NotFound, "instance.get_by_name", "no pool named %q", name)
	}
	return r.GetByKey(ctx, key)
}

// Instances returns every created instance ordered by key.
func (r *Registry) Instances() []*Instance {
	var out []*Instance
	r.entries.Range(func(_, v any) bool {
		if inst := v.(*entrySlot).inst.Load(); inst != nil {
			out = append(out, inst)
		}
		return true
	})
	slices.SortFunc(out, func(a, b *Instance) int {
		return strings.Compare(a.key.String(), b.key.String())
	})
	return out
}

func (r *Registry) descriptor(key *endpoint.Key) endpoint.Descriptor {
	if d, ok := r.pool.Descriptor(key); ok {
		return d
	}
	if d, ok := r.dir.Descriptor(key); ok {
		return d
	}
	return endpoint.Synthesize(key)
}

func (r *Registry) build(ctx context.Context, key *endpoint.Key) (*Instance, error) {
	desc := r.descriptor(key)
	if _, err := r.pool.EnsureSubPool(ctx, desc); err != nil {
		return nil, err
	}
	if d, ok := r.pool.Descriptor(key); ok {
		desc = d
	}

	var qmgr string
	err := r.pool.With(ctx, key, func(c *pool.Conn) error {
		qmgr = c.QueueManager()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Instance{
		key:             key,
		desc:            desc,
		qmgr:            qmgr,
		created:         time.Now(),
		pool:            r.pool,
		cache:           r.cache,
		log:             r.log.With("key", key.String()),
		snapshotWorkers: r.snapshotWorkers,
	}, nil
}

func (r *Registry) startWarmup(inst *Instance) {
	key := inst.key.String()
	r.sup.Go("warmup "+cache.QueueNames, key, func(ctx context.Context) error {
		_, err := inst.QueueNames(ctx, nil)
		return err
	})
	r.sup.Go("warmup "+cache.TopicNames, key, func(ctx context.Context) error {
		_, err := inst.TopicNames(ctx, nil)
		return err
	})
}
