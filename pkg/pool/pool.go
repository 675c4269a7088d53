// Package pool keeps one bounded set of broker connections per endpoint.
//
// Each endpoint key owns an isolated sub-pool backed by puddle. Sub-pools
// are installed explicitly with EnsureSubPool, which connects once before
// the sub-pool becomes visible so that an unreachable endpoint fails fast.
package pool

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sourcegraph/conc"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
	"github.com/getmockd/mqfacade/pkg/pcf"
)

// Defaults for Options.
const (
	DefaultMaxPerEndpoint = 8
	DefaultMaxWait        = 10 * time.Second
	DefaultIdleTimeout    = 5 * time.Minute
	DefaultReapInterval   = 30 * time.Second
)

// Options bound the sub-pools.
type Options struct {
	MaxPerEndpoint   int
	MaxWait          time.Duration
	IdleTimeout      time.Duration
	ReapInterval     time.Duration
	ValidateOnBorrow bool
}

// DefaultOptions returns the default pool options.
func DefaultOptions() Options {
	return Options{
		MaxPerEndpoint:   DefaultMaxPerEndpoint,
		MaxWait:          DefaultMaxWait,
		IdleTimeout:      DefaultIdleTimeout,
		ReapInterval:     DefaultReapInterval,
		ValidateOnBorrow: true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPerEndpoint <= 0 {
		o.MaxPerEndpoint = d.MaxPerEndpoint
	}
	if o.MaxWait <= 0 {
		o.MaxWait = d.MaxWait
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = d.IdleTimeout
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = d.ReapInterval
	}
	return o
}

// InstallObserver is told about every newly installed sub-pool.
type InstallObserver func(desc endpoint.Descriptor)

// Option configures a Pool.
type Option func(*Pool)

// WithOptions sets the pool bounds.
func WithOptions(o Options) Option {
	return func(p *Pool) { p.opts = o.withDefaults() }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pool) {
		if log != nil {
			p.log = log.With("component", "pool")
		}
	}
}

// WithInstallObserver registers fn to run after each sub-pool install.
func WithInstallObserver(fn InstallObserver) Option {
	return func(p *Pool) { p.observers = append(p.observers, fn) }
}

type subPool struct {
	desc  endpoint.Descriptor
	res   *puddle.Pool[*session]
	maxSz int32
}

// Pool is a keyed connection pool.
type Pool struct {
	dialer    pcf.Dialer
	opts      Options
	log       *slog.Logger
	observers []InstallObserver

	mu     sync.RWMutex
	subs   map[*endpoint.Key]*subPool
	closed bool

	installMu sync.Map // *endpoint.Key -> *sync.Mutex

	stopReaper chan struct{}
	reaperDone chan struct{}
	stopOnce   sync.Once
}

// New creates a pool that dials with dialer and starts the idle reaper.
func New(dialer pcf.Dialer, opts ...Option) *Pool {
	p := &Pool{
		dialer:     dialer,
		opts:       DefaultOptions(),
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		subs:       make(map[*endpoint.Key]*subPool),
		stopReaper: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.reapLoop()
	return p
}

// Options returns the effective options.
func (p *Pool) Options() Options { return p.opts }

// OnInstall registers an install observer.
func (p *Pool) OnInstall(fn InstallObserver) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, fn)
}

func (p *Pool) installLock(key *endpoint.Key) *sync.Mutex {
	m, _ := p.installMu.LoadOrStore(key, &sync.Mutex{})
	return m.(*sync.Mutex)
}

// EnsureSubPool installs a sub-pool for desc.Key if none exists. It returns
// true for the install that created the sub-pool and false afterwards. The
// first connection is created eagerly; if it fails nothing is installed.
func (p *Pool) EnsureSubPool(ctx context.Context, desc endpoint.Descriptor) (bool, error) {
	const op = "pool.ensure"
	if desc.Key == nil {
		return false, mqerr.Errorf(mqerr.InvalidArgument, op, "descriptor %q has no key", desc.PoolName)
	}
	if p.Has(desc.Key) {
		return false, nil
	}

	lock := p.installLock(desc.Key)
	lock.Lock()
	defer lock.Unlock()

	p.mu.RLock()
	_, exists := p.subs[desc.Key]
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return false, mqerr.Errorf(mqerr.Closed, op, "pool is shut down").WithKey(desc.Key.String())
	}
	if exists {
		return false, nil
	}

	sp, err := p.newSubPool(desc)
	if err != nil {
		return false, mqerr.E(mqerr.Internal, op, err).WithKey(desc.Key.String())
	}
	if err := sp.res.CreateResource(ctx); err != nil {
		sp.res.Close()
		return false, p.classify(op, desc.Key, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		sp.res.Close()
		return false, mqerr.Errorf(mqerr.Closed, op, "pool is shut down").WithKey(desc.Key.String())
	}
	p.subs[desc.Key] = sp
	observers := append([]InstallObserver(nil), p.observers...)
	p.mu.Unlock()

	p.log.Info("sub-pool installed", "key", desc.Key.String(), "pool", desc.PoolName, "max", sp.maxSz)
	for _, fn := range observers {
		fn(desc)
	}
	return true, nil
}

func (p *Pool) newSubPool(desc endpoint.Descriptor) (*subPool, error) {
	log := p.log.With("key", desc.Key.String())
	res, err := puddle.NewPool(&puddle.Config[*session]{
		Constructor: func(ctx context.Context) (*session, error) {
			conn, qmgr, err := p.dialer.Dial(ctx, desc)
			if err != nil {
				return nil, err
			}
			log.Debug("connection opened", "qmgr", qmgr)
			return &session{desc: desc, conn: conn, qmgr: qmgr, pooled: true}, nil
		},
		Destructor: func(s *session) {
			if err := s.conn.Disconnect(); err != nil {
				log.Warn("disconnect failed", "error", err)
				return
			}
			log.Debug("connection closed", "uses", s.uses.Load())
		},
		MaxSize: int32(p.opts.MaxPerEndpoint),
	})
	if err != nil {
		return nil, err
	}
	return &subPool{desc: desc, res: res, maxSz: int32(p.opts.MaxPerEndpoint)}, nil
}

// Has reports whether a sub-pool is installed for key.
func (p *Pool) Has(key *endpoint.Key) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.subs[key]
	return ok
}

// Descriptor returns the descriptor of the sub-pool for key.
func (p *Pool) Descriptor(key *endpoint.Key) (endpoint.Descriptor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sp, ok := p.subs[key]
	if !ok {
		return endpoint.Descriptor{}, false
	}
	return sp.desc, true
}

// Keys returns the installed keys ordered by their string form.
func (p *Pool) Keys() []*endpoint.Key {
	p.mu.RLock()
	keys := make([]*endpoint.Key, 0, len(p.subs))
	for k := range p.subs {
		keys = append(keys, k)
	}
	p.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (p *Pool) sub(op string, key *endpoint.Key) (*subPool, error) {
	if key == nil {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, op, "nil key")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, mqerr.Errorf(mqerr.Closed, op, "pool is shut down").WithKey(key.String())
	}
	sp, ok := p.subs[key]
	if !ok {
		return nil, mqerr.Errorf(mqerr.NotFound, op, "no sub-pool installed").WithKey(key.String())
	}
	return sp, nil
}

// Acquire borrows a connection for key, waiting at most MaxWait. A reused
// connection is validated first when ValidateOnBorrow is set; one that
// fails is destroyed and another is tried.
func (p *Pool) Acquire(ctx context.Context, key *endpoint.Key) (*Conn, error) {
	const op = "pool.acquire"
	sp, err := p.sub(op, key)
	if err != nil {
		return nil, err
	}

	actx, cancel := context.WithTimeout(ctx, p.opts.MaxWait)
	defer cancel()

	for {
		res, err := sp.res.Acquire(actx)
		if err != nil {
			return nil, p.acquireErr(ctx, sp, err)
		}
		c := &Conn{session: res.Value(), res: res}
		if c.Uses() > 0 && p.opts.ValidateOnBorrow && !p.Validate(actx, c) {
			p.log.Info("connection failed validation", "key", key.String(), "qmgr", c.qmgr)
			res.Destroy()
			continue
		}
		c.uses.Add(1)
		return c, nil
	}
}

func (p *Pool) acquireErr(parent context.Context, sp *subPool, err error) error {
	const op = "pool.acquire"
	key := sp.desc.Key
	switch {
	case errors.Is(err, puddle.ErrClosedPool):
		return mqerr.E(mqerr.Closed, op, err).WithKey(key.String())
	case parent.Err() != nil:
		return mqerr.E(mqerr.Timeout, op, parent.Err()).WithKey(key.String())
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		if sp.res.Stat().AcquiredResources() >= sp.maxSz {
			return mqerr.Errorf(mqerr.PoolExhausted, op, "all %d connections busy after %s", sp.maxSz, p.opts.MaxWait).WithKey(key.String())
		}
		return mqerr.E(mqerr.Timeout, op, err).WithKey(key.String())
	default:
		return p.classify(op, key, err)
	}
}

// classify keeps classified dial errors and wraps the rest as ConnectError.
func (p *Pool) classify(op string, key *endpoint.Key, err error) error {
	var e *mqerr.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return mqerr.E(mqerr.Timeout, op, err).WithKey(key.String())
	}
	return mqerr.E(mqerr.ConnectError, op, err).WithKey(key.String())
}

// Validate reports whether c still talks to the queue manager it connected
// to.
func (p *Pool) Validate(ctx context.Context, c *Conn) bool {
	name, err := c.InquireQueueManager(ctx)
	return err == nil && name == c.qmgr
}

// Release hands c back. Broken connections are destroyed, standalone ones
// disconnected. A second release of the same borrow is logged and ignored.
func (p *Pool) Release(c *Conn) {
	if c == nil {
		return
	}
	if !c.released.CompareAndSwap(false, true) {
		p.log.Warn("connection released twice", "key", c.Key().String())
		return
	}
	if !c.pooled {
		if err := c.conn.Disconnect(); err != nil {
			p.log.Warn("disconnect failed", "key", c.Key().String(), "error", err)
		}
		return
	}
	res := c.res
	if res == nil {
		return
	}
	if c.Broken() {
		p.log.Debug("destroying broken connection", "key", c.Key().String())
		res.Destroy()
		return
	}
	res.Release()
}

// With borrows a connection for key, runs fn and releases the connection on
// every path. A connect-class error from fn marks the connection broken.
func (p *Pool) With(ctx context.Context, key *endpoint.Key, fn func(*Conn) error) error {
	c, err := p.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer p.Release(c)

	err = fn(c)
	if err != nil && mqerr.KindOf(err) == mqerr.ConnectError {
		c.MarkBroken()
	}
	return err
}

// Standalone opens a connection outside any sub-pool. Release disconnects it.
func (p *Pool) Standalone(ctx context.Context, desc endpoint.Descriptor) (*Conn, error) {
	const op = "pool.standalone"
	if desc.Key == nil {
		return nil, mqerr.Errorf(mqerr.InvalidArgument, op, "descriptor %q has no key", desc.PoolName)
	}
	conn, qmgr, err := p.dialer.Dial(ctx, desc)
	if err != nil {
		return nil, p.classify(op, desc.Key, err)
	}
	c := &Conn{session: &session{desc: desc, conn: conn, qmgr: qmgr}}
	c.uses.Store(1)
	return c, nil
}

// Shutdown stops the reaper and closes every sub-pool, waiting for borrowed
// connections to come back until ctx is done.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopReaper) })

	p.mu.Lock()
	p.closed = true
	subs := make([]*subPool, 0, len(p.subs))
	for _, sp := range p.subs {
		subs = append(subs, sp)
	}
	p.mu.Unlock()

	var wg conc.WaitGroup
	for _, sp := range subs {
		wg.Go(sp.res.Close)
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		<-p.reaperDone
		p.log.Info("pool shut down", "subPools", len(subs))
		return nil
	case <-ctx.Done():
		return mqerr.E(mqerr.Timeout, "pool.shutdown", ctx.Err())
	}
}
