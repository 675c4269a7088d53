package cache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

type storeEntry struct {
	key       string
	value     any
	written   time.Time
	accessed  time.Time
	expiresAt time.Time // zero when the spec sets no expiry
}

type removal struct {
	key   string
	value any
	cause RemovalCause
}

// Store is one bounded LRU map with write/access expiry. Removal callbacks
// run after the store lock is released.
type Store struct {
	spec     Spec
	now      func() time.Time
	onRemove func(key string, value any, cause RemovalCause)

	mu     sync.Mutex
	items  map[string]*list.Element
	order  *list.List // front is most recently used
	bulkAt time.Time  // last completed bulk load
	stats  statistics

	bulkLoading atomic.Bool
}

func newStore(spec Spec, now func() time.Time, onRemove func(string, any, RemovalCause)) *Store {
	capacity := spec.InitialCapacity
	if capacity < 0 {
		capacity = 0
	}
	if now == nil {
		now = time.Now
	}
	return &Store{
		spec:     spec,
		now:      now,
		onRemove: onRemove,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Spec returns the store's specification.
func (s *Store) Spec() Spec { return s.spec }

func (s *Store) expiry(e *storeEntry) time.Time {
	var at time.Time
	if s.spec.ExpireAfterWrite > 0 {
		at = e.written.Add(s.spec.ExpireAfterWrite)
	}
	if s.spec.ExpireAfterAccess > 0 {
		a := e.accessed.Add(s.spec.ExpireAfterAccess)
		if at.IsZero() || a.Before(at) {
			at = a
		}
	}
	return at
}

func expired(e *storeEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (s *Store) fire(removed []removal) {
	for _, r := range removed {
		s.stats.removal(r.cause)
		if s.onRemove != nil {
			s.onRemove(r.key, r.value, r.cause)
		}
	}
}

// unlink removes el; the caller holds the lock.
func (s *Store) unlink(el *list.Element, cause RemovalCause, removed []removal) []removal {
	e := el.Value.(*storeEntry)
	delete(s.items, e.key)
	s.order.Remove(el)
	return append(removed, removal{key: e.key, value: e.value, cause: cause})
}

// Get returns the live value for key and refreshes its recency.
func (s *Store) Get(key string) (any, bool) {
	now := s.now()
	var removed []removal

	s.mu.Lock()
	el, ok := s.items[key]
	if ok && expired(el.Value.(*storeEntry), now) {
		removed = s.unlink(el, Expired, removed)
		ok = false
	}
	var v any
	if ok {
		e := el.Value.(*storeEntry)
		e.accessed = now
		e.expiresAt = s.expiry(e)
		s.order.MoveToFront(el)
		v = e.value
	}
	s.mu.Unlock()

	if s.spec.RecordStats {
		if ok {
			s.stats.hit()
		} else {
			s.stats.miss()
		}
	}
	s.fire(removed)
	return v, ok
}

func (s *Store) loadSucceeded(d time.Duration) {
	if s.spec.RecordStats {
		s.stats.loadSuccess(d)
	}
}

func (s *Store) loadFailed(d time.Duration) {
	if s.spec.RecordStats {
		s.stats.loadFailure(d)
	}
}

// peek is Get without recency, expiry side effects or stats.
func (s *Store) peek(key string) (any, bool) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok || expired(el.Value.(*storeEntry), now) {
		return nil, false
	}
	return el.Value.(*storeEntry).value, true
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key string, value any) {
	s.PutAll(map[string]any{key: value})
}

// PutAll stores every entry of values.
func (s *Store) PutAll(values map[string]any) {
	now := s.now()
	var removed []removal

	s.mu.Lock()
	for key, value := range values {
		if el, ok := s.items[key]; ok {
			e := el.Value.(*storeEntry)
			removed = append(removed, removal{key: key, value: e.value, cause: Replaced})
			e.value = value
			e.written, e.accessed = now, now
			e.expiresAt = s.expiry(e)
			s.order.MoveToFront(el)
			continue
		}
		e := &storeEntry{key: key, value: value, written: now, accessed: now}
		e.expiresAt = s.expiry(e)
		s.items[key] = s.order.PushFront(e)
	}
	if s.spec.bounded() {
		for len(s.items) > s.spec.MaximumSize {
			removed = s.unlink(s.order.Back(), Size, removed)
		}
	}
	s.mu.Unlock()

	s.fire(removed)
}

// Invalidate removes key and reports whether it was present.
func (s *Store) Invalidate(key string) bool {
	var removed []removal
	s.mu.Lock()
	if el, ok := s.items[key]; ok {
		removed = s.unlink(el, Explicit, removed)
	}
	s.mu.Unlock()
	s.fire(removed)
	return len(removed) > 0
}

// InvalidateAll removes every entry and forgets the last bulk load.
func (s *Store) InvalidateAll() int {
	var removed []removal
	s.mu.Lock()
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		removed = s.unlink(el, Explicit, removed)
		el = prev
	}
	s.bulkAt = time.Time{}
	s.mu.Unlock()
	s.fire(removed)
	return len(removed)
}

// Cleanup eagerly removes expired entries and returns how many it removed.
func (s *Store) Cleanup() int {
	now := s.now()
	var removed []removal
	s.mu.Lock()
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if expired(el.Value.(*storeEntry), now) {
			removed = s.unlink(el, Expired, removed)
		}
		el = prev
	}
	s.mu.Unlock()
	s.fire(removed)
	return len(removed)
}

// Snapshot returns a copy of every live entry.
func (s *Store) Snapshot() map[string]any {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]any, len(s.items))
	for k, el := range s.items {
		e := el.Value.(*storeEntry)
		if !expired(e, now) {
			out[k] = e.value
		}
	}
	return out
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, el := range s.items {
		if !expired(el.Value.(*storeEntry), now) {
			n++
		}
	}
	return n
}

// bulkFresh reports whether a bulk load completed within the write expiry
// and has not been invalidated since.
func (s *Store) bulkFresh() bool {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bulkAt.IsZero() {
		return false
	}
	return s.spec.ExpireAfterWrite <= 0 || now.Before(s.bulkAt.Add(s.spec.ExpireAfterWrite))
}

func (s *Store) markBulk() {
	now := s.now()
	s.mu.Lock()
	s.bulkAt = now
	s.mu.Unlock()
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	return s.stats.snapshot(s.Len())
}
