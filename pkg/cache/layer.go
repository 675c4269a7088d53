package cache

import (
	"context"
	"log/slog"
	"maps"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/singleflight"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/logging"
	"github.com/getmockd/mqfacade/pkg/mqerr"
)

// Cache names used by instances.
const (
	QueueDepth = "queueDepth"
	QueueAttrs = "queueAttrs"
	QueueNames = "queueNames"
	TopicNames = "topicNames"
	TopicAttrs = "topicAttrs"
	TopicSubs  = "topicSubs"
	SubAttrs   = "subAttrs"
)

// Names lists the cache names created for every key.
var Names = []string{QueueDepth, QueueAttrs, QueueNames, TopicNames, TopicAttrs, TopicSubs, SubAttrs}

// DefaultCleanupInterval is how often expired entries are swept.
const DefaultCleanupInterval = time.Minute

// bulkBatch is the number of entries one GetAll fan-in worker stores at once.
const bulkBatch = 256

// Loader produces the value for one missing item.
type Loader func(ctx context.Context) (any, error)

// BulkLoader produces every item of an empty store.
type BulkLoader func(ctx context.Context) (map[string]any, error)

// RemovalObserver is notified after an entry leaves a store.
type RemovalObserver func(key *endpoint.Key, cacheName, itemKey string, value any, cause RemovalCause)

// Config configures a Layer.
type Config struct {
	// RecordStats appends recordStats to the default spec.
	RecordStats bool
	// DefaultSpec overrides the built-in default spec when non-empty.
	DefaultSpec string
	// Specs holds per-cache-name overrides.
	Specs map[string]string
	// CleanupInterval is the period of the expired-entry sweep; <= 0 uses
	// DefaultCleanupInterval.
	CleanupInterval time.Duration
}

// Info describes one store.
type Info struct {
	Key   *endpoint.Key `json:"key"`
	Name  string        `json:"name"`
	Spec  string        `json:"spec"`
	Size  int           `json:"size"`
	Stats Stats         `json:"stats"`
}

type storeID struct {
	key  *endpoint.Key
	name string
}

// Option configures a Layer.
type Option func(*Layer)

// WithLogger sets the layer's logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Layer) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(l *Layer) {
		if now != nil {
			l.now = now
		}
	}
}

// Layer holds one store per (key, cache name) and coalesces loads.
type Layer struct {
	log         *slog.Logger
	now         func() time.Time
	defaultSpec Spec
	specs       map[string]Spec

	mu     sync.RWMutex
	stores map[storeID]*Store

	obsMu     sync.RWMutex
	observers []RemovalObserver

	group singleflight.Group
	// bulk keeps GetAll flights apart from item loads.
	bulk singleflight.Group

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewLayer parses every configured spec and starts the cleanup loop.
func NewLayer(cfg Config, opts ...Option) (*Layer, error) {
	src := cfg.DefaultSpec
	if strings.TrimSpace(src) == "" {
		src = DefaultSpec(cfg.RecordStats)
	}
	def, err := ParseSpec(src)
	if err != nil {
		return nil, err
	}
	specs := make(map[string]Spec, len(cfg.Specs))
	for name, s := range cfg.Specs {
		spec, err := ParseSpec(s)
		if err != nil {
			return nil, mqerr.Errorf(mqerr.InvalidArgument, "cache.new", "cache %q: %w", name, err)
		}
		specs[name] = spec
	}

	l := &Layer{
		log:         logging.Nop(),
		now:         time.Now,
		defaultSpec: def,
		specs:       specs,
		stores:      make(map[storeID]*Store),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go l.cleanupLoop(interval)
	return l, nil
}

// SpecFor returns the spec used for stores named name.
func (l *Layer) SpecFor(name string) Spec {
	if s, ok := l.specs[name]; ok {
		return s
	}
	return l.defaultSpec
}

// OnRemoval registers fn. Observers run in registration order.
func (l *Layer) OnRemoval(fn RemovalObserver) {
	l.obsMu.Lock()
	l.observers = append(l.observers, fn)
	l.obsMu.Unlock()
}

func (l *Layer) notify(key *endpoint.Key, name, itemKey string, value any, cause RemovalCause) {
	l.obsMu.RLock()
	obs := l.observers
	l.obsMu.RUnlock()
	for _, fn := range obs {
		fn(key, name, itemKey, value, cause)
	}
}

func (l *Layer) lookup(key *endpoint.Key, name string) (*Store, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.stores[storeID{key, name}]
	return s, ok
}

// store returns the store for (key, name), creating it on first use.
func (l *Layer) store(key *endpoint.Key, name string) (*Store, bool) {
	if s, ok := l.lookup(key, name); ok {
		return s, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	id := storeID{key, name}
	if s, ok := l.stores[id]; ok {
		return s, false
	}
	s := newStore(l.SpecFor(name), l.now, func(itemKey string, value any, cause RemovalCause) {
		l.notify(key, name, itemKey, value, cause)
	})
	l.stores[id] = s
	return s, true
}

func (l *Layer) existing(op string, key *endpoint.Key, name string) (*Store, error) {
	s, ok := l.lookup(key, name)
	if !ok {
		return nil, mqerr.Errorf(mqerr.NotFound, op, "no cache %q", name).WithKey(key.String())
	}
	return s, nil
}

// InitKey creates every known cache for key. It is the pool install
// observer.
func (l *Layer) InitKey(key *endpoint.Key) []string {
	names := slices.Clone(Names)
	for name := range l.specs {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	var created []string
	for _, name := range names {
		if _, ok := l.store(key, name); ok {
			created = append(created, name)
		}
	}
	if len(created) > 0 {
		l.log.Info("caches initialized", "key", key.String(), "caches", created)
	}
	return created
}

// Get returns the cached item or loads it. Concurrent misses for the same
// item share one loader call.
func (l *Layer) Get(ctx context.Context, key *endpoint.Key, name, itemKey string, loader Loader) (any, error) {
	s, _ := l.store(key, name)
	if v, ok := s.Get(itemKey); ok {
		return v, nil
	}
	if loader == nil {
		return nil, mqerr.Errorf(mqerr.NotFound, "cache.get", "%s[%s] not cached", name, itemKey).WithKey(key.String())
	}

	flight := key.String() + "\x00" + name + "\x00" + itemKey
	v, err, _ := l.group.Do(flight, func() (any, error) {
		if v, ok := s.peek(itemKey); ok {
			return v, nil
		}
		start := time.Now()
		v, err := loader(ctx)
		if err != nil {
			s.loadFailed(time.Since(start))
			return nil, mqerr.E(mqerr.LoadError, "cache.load", err).WithKey(key.String())
		}
		s.loadSucceeded(time.Since(start))
		s.Put(itemKey, v)
		return v, nil
	})
	return v, err
}

// GetAll returns a snapshot of the store, running bulk first when the store
// has not been bulk-loaded or is empty.
func (l *Layer) GetAll(ctx context.Context, key *endpoint.Key, name string, bulk BulkLoader) (map[string]any, error) {
	s, _ := l.store(key, name)
	// Readiness is checked before the loading flag so a caller never sees
	// a half-filled store.
	ready := s.Len() > 0 || s.bulkFresh()
	if bulk == nil || (ready && !s.bulkLoading.Load()) {
		return s.Snapshot(), nil
	}

	flight := key.String() + "\x00" + name
	_, err, _ := l.bulk.Do(flight, func() (any, error) {
		if s.Len() > 0 || s.bulkFresh() {
			return nil, nil
		}
		s.bulkLoading.Store(true)
		defer s.bulkLoading.Store(false)
		start := time.Now()
		values, err := bulk(ctx)
		if err != nil {
			s.loadFailed(time.Since(start))
			return nil, mqerr.E(mqerr.LoadError, "cache.load_all", err).WithKey(key.String())
		}
		l.fanIn(s, values)
		s.markBulk()
		s.loadSucceeded(time.Since(start))
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

func (l *Layer) fanIn(s *Store, values map[string]any) {
	keys := slices.Sorted(maps.Keys(values))
	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for batch := range slices.Chunk(keys, bulkBatch) {
		p.Go(func() {
			part := make(map[string]any, len(batch))
			for _, k := range batch {
				part[k] = values[k]
			}
			s.PutAll(part)
		})
	}
	p.Wait()
}

// Put stores value, replacing any previous one.
func (l *Layer) Put(key *endpoint.Key, name, itemKey string, value any) {
	s, _ := l.store(key, name)
	s.Put(itemKey, value)
}

// Invalidate removes one item and reports whether it was cached.
func (l *Layer) Invalidate(key *endpoint.Key, name, itemKey string) bool {
	s, ok := l.lookup(key, name)
	return ok && s.Invalidate(itemKey)
}

// InvalidateAll empties one store.
func (l *Layer) InvalidateAll(key *endpoint.Key, name string) (int, error) {
	s, err := l.existing("cache.invalidate_all", key, name)
	if err != nil {
		return 0, err
	}
	n := s.InvalidateAll()
	l.log.Debug("cache invalidated", "key", key.String(), "cache", name, "removed", n)
	return n, nil
}

// ForceCleanup sweeps expired entries from one store.
func (l *Layer) ForceCleanup(key *endpoint.Key, name string) (int, error) {
	s, err := l.existing("cache.cleanup", key, name)
	if err != nil {
		return 0, err
	}
	return s.Cleanup(), nil
}

// Stats returns one store's counters.
func (l *Layer) Stats(key *endpoint.Key, name string) (Stats, error) {
	s, err := l.existing("cache.stats", key, name)
	if err != nil {
		return Stats{}, err
	}
	return s.Stats(), nil
}

// All lists every store ordered by key then name.
func (l *Layer) All() []Info {
	l.mu.RLock()
	ids := slices.Collect(maps.Keys(l.stores))
	stores := maps.Clone(l.stores)
	l.mu.RUnlock()

	slices.SortFunc(ids, func(a, b storeID) int {
		if c := strings.Compare(a.key.String(), b.key.String()); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	out := make([]Info, 0, len(ids))
	for _, id := range ids {
		s := stores[id]
		st := s.Stats()
		out = append(out, Info{Key: id.key, Name: id.name, Spec: s.Spec().String(), Size: st.Size, Stats: st})
	}
	return out
}

func (l *Layer) cleanupLoop(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Layer) sweep() {
	l.mu.RLock()
	stores := slices.Collect(maps.Values(l.stores))
	l.mu.RUnlock()
	removed := 0
	for _, s := range stores {
		removed += s.Cleanup()
	}
	if removed > 0 {
		l.log.Debug("expired cache entries removed", "count", removed)
	}
}

// Close stops the cleanup loop. Cached values stay readable.
func (l *Layer) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}
