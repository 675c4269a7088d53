package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mqfacade/pkg/endpoint"
	"github.com/getmockd/mqfacade/pkg/mqerr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLayer(t *testing.T, cfg Config, clock *fakeClock) *Layer {
	t.Helper()
	opts := []Option{}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	l, err := NewLayer(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l
}

var testKey = endpoint.MustNew("cache.test", 1414, "SVRCONN")

func TestParseSpec(t *testing.T) {
	t.Parallel()

	valid := []struct {
		in   string
		want Spec
	}{
		{"", Spec{ConcurrencyLevel: -1, InitialCapacity: -1, MaximumSize: -1}},
		{"maximumSize=10", Spec{ConcurrencyLevel: -1, InitialCapacity: -1, MaximumSize: 10}},
		{
			"concurrencyLevel=4, initialCapacity=16,maximumSize=100,expireAfterWrite=2m,expireAfterAccess=1h,recordStats",
			Spec{ConcurrencyLevel: 4, InitialCapacity: 16, MaximumSize: 100, ExpireAfterWrite: 2 * time.Minute, ExpireAfterAccess: time.Hour, RecordStats: true},
		},
		{"expireAfterWrite=90s", Spec{ConcurrencyLevel: -1, InitialCapacity: -1, MaximumSize: -1, ExpireAfterWrite: 90 * time.Second}},
		{"expireAfterWrite=1d", Spec{ConcurrencyLevel: -1, InitialCapacity: -1, MaximumSize: -1, ExpireAfterWrite: 24 * time.Hour}},
		{"maximumSize=0", Spec{ConcurrencyLevel: -1, InitialCapacity: -1, MaximumSize: 0}},
	}
	for _, tc := range valid {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseSpec(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			again, err := ParseSpec(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, again, "canonical form round-trips")
		})
	}

	invalid := []string{
		"maximumSize=abc",
		"maximumSize=-1",
		"maximumSize",
		"maximumSize=",
		"foo=1",
		"maximumSize=1,maximumSize=2",
		"expireAfterWrite=10x",
		"expireAfterWrite=m",
		"recordStats=true",
		"concurrencyLevel=0",
	}
	for _, in := range invalid {
		t.Run("invalid "+in, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSpec(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, mqerr.ErrInvalidArgument))
		})
	}
}

func TestDefaultSpec(t *testing.T) {
	t.Parallel()

	spec := MustParseSpec(DefaultSpec(false))
	assert.Equal(t, 8192, spec.MaximumSize)
	assert.Equal(t, 1024, spec.InitialCapacity)
	assert.Equal(t, 2*time.Minute, spec.ExpireAfterWrite)
	assert.Positive(t, spec.ConcurrencyLevel)
	assert.False(t, spec.RecordStats)

	assert.True(t, MustParseSpec(DefaultSpec(true)).RecordStats)
}

func TestStoreRemovalCauses(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	var mu sync.Mutex
	var causes []RemovalCause
	s := newStore(MustParseSpec("maximumSize=2,expireAfterWrite=1m,recordStats"), clock.Now,
		func(_ string, _ any, c RemovalCause) {
			mu.Lock()
			causes = append(causes, c)
			mu.Unlock()
		})

	s.Put("a", 1)
	s.Put("a", 2)
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	s.Put("b", 1)
	s.Put("c", 1) // evicts a, the least recently used
	_, ok = s.Get("a")
	assert.False(t, ok)

	clock.Advance(time.Minute)
	_, ok = s.Get("b")
	assert.False(t, ok, "entry expires exactly at its write ttl")
	assert.Equal(t, 1, s.Cleanup(), "c is swept")

	s.Put("d", 1)
	assert.True(t, s.Invalidate("d"))
	assert.False(t, s.Invalidate("d"))

	st := s.Stats()
	assert.Equal(t, int64(1), st.Removals[Replaced])
	assert.Equal(t, int64(1), st.Removals[Size])
	assert.Equal(t, int64(2), st.Removals[Expired])
	assert.Equal(t, int64(1), st.Removals[Explicit])
	assert.Equal(t, int64(0), st.Removals[Collected])
	assert.Equal(t, int64(3), st.Evictions)
	assert.Equal(t, 0, st.Size)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(2), st.Misses)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []RemovalCause{Replaced, Size, Expired, Expired, Explicit}, causes)
}

func TestStoreExpireAfterAccess(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := newStore(MustParseSpec("expireAfterAccess=10s"), clock.Now, nil)
	s.Put("q", "v")

	for i := 0; i < 3; i++ {
		clock.Advance(9 * time.Second)
		_, ok := s.Get("q")
		require.True(t, ok, "reads keep the entry alive")
	}
	clock.Advance(10 * time.Second)
	_, ok := s.Get("q")
	assert.False(t, ok)
}

func TestStoreWithoutStats(t *testing.T) {
	t.Parallel()

	s := newStore(MustParseSpec("maximumSize=4"), nil, nil)
	s.Put("a", 1)
	s.Get("a")
	s.Get("b")
	st := s.Stats()
	assert.Zero(t, st.Requests)
	assert.Equal(t, 1.0, st.HitRate)
	assert.Equal(t, 1, st.Size)
}

func TestLayerGetSingleFlight(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{RecordStats: true}, nil)
	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return int64(42), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.Get(context.Background(), testKey, QueueDepth, "Q1", loader)
			assert.NoError(t, err)
			assert.Equal(t, int64(42), v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	st, err := l.Stats(testKey, QueueDepth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.LoadSuccesses)
	assert.Equal(t, 1, st.Size)
}

func TestLayerGetLoadError(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{RecordStats: true}, nil)
	cause := mqerr.E(mqerr.NotFound, "test", errors.New("no such queue"))
	_, err := l.Get(context.Background(), testKey, QueueDepth, "Q1", func(context.Context) (any, error) {
		return nil, cause
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, mqerr.ErrLoad))
	assert.True(t, errors.Is(err, mqerr.ErrNotFound))
	assert.Equal(t, mqerr.NotFound, mqerr.KindOf(err))

	v, err := l.Get(context.Background(), testKey, QueueDepth, "Q1", func(context.Context) (any, error) {
		return int64(7), nil
	})
	require.NoError(t, err, "failures are not memoized")
	assert.Equal(t, int64(7), v)

	st, err := l.Stats(testKey, QueueDepth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.LoadFailures)
	assert.Equal(t, int64(1), st.LoadSuccesses)
}

func TestLayerLoadStatsNeedRecordStats(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	_, err := l.Get(context.Background(), testKey, QueueDepth, "Q1", func(context.Context) (any, error) {
		return int64(3), nil
	})
	require.NoError(t, err)
	_, err = l.GetAll(context.Background(), testKey, QueueNames, func(context.Context) (map[string]any, error) {
		return nil, errors.New("broker down")
	})
	require.Error(t, err)

	for _, name := range []string{QueueDepth, QueueNames} {
		st, err := l.Stats(testKey, name)
		require.NoError(t, err)
		assert.Zero(t, st.LoadSuccesses, name)
		assert.Zero(t, st.LoadFailures, name)
		assert.Zero(t, st.TotalLoadTime, name)
	}
}

func TestLayerGetDuringBulkLoadOfSameStore(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	started := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := l.GetAll(context.Background(), testKey, QueueAttrs, func(context.Context) (map[string]any, error) {
			close(started)
			<-finish
			return map[string]any{"Q1": "one"}, nil
		})
		done <- err
	}()
	<-started

	v, err := l.Get(context.Background(), testKey, QueueAttrs, "*", func(context.Context) (any, error) {
		return "star", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "star", v)

	close(finish)
	require.NoError(t, <-done)
}

func TestLayerGetWithoutLoader(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	_, err := l.Get(context.Background(), testKey, QueueAttrs, "missing", nil)
	assert.True(t, mqerr.Is(err, mqerr.NotFound))

	l.Put(testKey, QueueAttrs, "present", "x")
	v, err := l.Get(context.Background(), testKey, QueueAttrs, "present", nil)
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}

func TestLayerExpiryReloads(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := newTestLayer(t, Config{Specs: map[string]string{QueueDepth: "maximumSize=16,expireAfterWrite=15s"}}, clock)
	var calls atomic.Int32
	loader := func(context.Context) (any, error) { return calls.Add(1), nil }

	v, err := l.Get(context.Background(), testKey, QueueDepth, "Q", loader)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	clock.Advance(14 * time.Second)
	v, _ = l.Get(context.Background(), testKey, QueueDepth, "Q", loader)
	assert.Equal(t, int32(1), v)

	clock.Advance(time.Second)
	v, _ = l.Get(context.Background(), testKey, QueueDepth, "Q", loader)
	assert.Equal(t, int32(2), v)

	st, err := l.Stats(testKey, QueueDepth)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Removals[Expired])
	assert.Equal(t, "maximumSize=16,expireAfterWrite=15s", l.SpecFor(QueueDepth).String())
}

func TestLayerGetAllOnce(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	var calls atomic.Int32
	bulk := func(context.Context) (map[string]any, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		out := make(map[string]any, 600)
		for i := 0; i < 600; i++ {
			out["Q"+strconv.Itoa(i)] = "Q" + strconv.Itoa(i) + "   "
		}
		return out, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			all, err := l.GetAll(context.Background(), testKey, QueueNames, bulk)
			assert.NoError(t, err)
			assert.Len(t, all, 600)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())

	all, err := l.GetAll(context.Background(), testKey, QueueNames, bulk)
	require.NoError(t, err)
	all["extra"] = 1
	again, _ := l.GetAll(context.Background(), testKey, QueueNames, bulk)
	assert.Len(t, again, 600, "snapshots are copies")
	assert.Equal(t, int32(1), calls.Load())

	_, err = l.InvalidateAll(testKey, QueueNames)
	require.NoError(t, err)
	_, err = l.GetAll(context.Background(), testKey, QueueNames, bulk)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLayerGetAllEmptyResult(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	var calls atomic.Int32
	bulk := func(context.Context) (map[string]any, error) {
		calls.Add(1)
		return map[string]any{}, nil
	}
	for i := 0; i < 3; i++ {
		all, err := l.GetAll(context.Background(), testKey, TopicNames, bulk)
		require.NoError(t, err)
		assert.Empty(t, all)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestLayerGetAllError(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	boom := errors.New("boom")
	_, err := l.GetAll(context.Background(), testKey, TopicNames, func(context.Context) (map[string]any, error) {
		return nil, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, mqerr.LoadError, mqerr.KindOf(err))
}

func TestLayerRemovalObservers(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	var mu sync.Mutex
	var seen []string
	l.OnRemoval(func(key *endpoint.Key, name, item string, _ any, cause RemovalCause) {
		mu.Lock()
		defer mu.Unlock()
		assert.Same(t, testKey, key)
		seen = append(seen, "first:"+name+":"+item+":"+string(cause))
	})
	l.OnRemoval(func(_ *endpoint.Key, _, item string, _ any, _ RemovalCause) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, "second:"+item)
	})

	l.Put(testKey, SubAttrs, "S1", 1)
	l.Put(testKey, SubAttrs, "S1", 2)
	assert.True(t, l.Invalidate(testKey, SubAttrs, "S1"))
	assert.False(t, l.Invalidate(testKey, TopicSubs, "S1"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"first:subAttrs:S1:REPLACED", "second:S1",
		"first:subAttrs:S1:EXPLICIT", "second:S1",
	}, seen)
}

func TestLayerInitKeyAndAll(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{Specs: map[string]string{"custom": "maximumSize=1"}}, nil)
	created := l.InitKey(testKey)
	assert.Len(t, created, len(Names)+1)
	assert.Contains(t, created, "custom")
	assert.Empty(t, l.InitKey(testKey), "second init creates nothing")

	other := endpoint.MustNew("cache.other", 1414, "SVRCONN")
	l.Put(other, QueueDepth, "Q", int64(1))

	all := l.All()
	require.Len(t, all, len(Names)+2)
	assert.Same(t, other, all[0].Key, "ordered by canonical key")
	assert.Equal(t, 1, all[0].Size)
	assert.Same(t, testKey, all[1].Key)
	assert.Equal(t, "custom", all[1].Name)
	assert.Equal(t, "maximumSize=1", all[1].Spec)
}

func TestLayerManagementErrors(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{}, nil)
	_, err := l.Stats(testKey, "nope")
	assert.True(t, mqerr.Is(err, mqerr.NotFound))
	_, err = l.InvalidateAll(testKey, "nope")
	assert.True(t, mqerr.Is(err, mqerr.NotFound))
	_, err = l.ForceCleanup(testKey, "nope")
	assert.True(t, mqerr.Is(err, mqerr.NotFound))

	_, err = NewLayer(Config{Specs: map[string]string{QueueDepth: "bogus=1"}})
	assert.True(t, mqerr.Is(err, mqerr.InvalidArgument))
	_, err = NewLayer(Config{DefaultSpec: "maximumSize=x"})
	assert.True(t, mqerr.Is(err, mqerr.InvalidArgument))
}

func TestLayerForceCleanup(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	l := newTestLayer(t, Config{DefaultSpec: "expireAfterWrite=1m"}, clock)
	l.Put(testKey, TopicAttrs, "a", 1)
	l.Put(testKey, TopicAttrs, "b", 2)
	clock.Advance(2 * time.Minute)

	n, err := l.ForceCleanup(testKey, TopicAttrs)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st, err := l.Stats(testKey, TopicAttrs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Removals[Expired])
}

func TestCollector(t *testing.T) {
	t.Parallel()

	l := newTestLayer(t, Config{RecordStats: true}, nil)
	l.Put(testKey, QueueDepth, "Q", int64(1))

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(l.Collector()))
	n, err := testutil.GatherAndCount(reg, "mqfacade_cache_removals_total")
	require.NoError(t, err)
	assert.Equal(t, len(Causes), n)
	n, err = testutil.GatherAndCount(reg, "mqfacade_cache_entries")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
