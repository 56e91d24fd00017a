// Package cache holds the client-side query cache: the last known result of
// every named query the UI renders from. Entries are rewritten only by the
// mutation pipeline (optimistic or confirmed writes) and the change-feed
// merge, and invalidated after every mutation settles so the cache converges
// to backend ground truth.
package cache

import (
	"context"
	"strings"
	"sync"
)

// Key names one cached query, e.g. "comments:<reviewID>".
type Key string

// HasPrefix reports whether the key belongs to a key family.
func (k Key) HasPrefix(prefix string) bool {
	return strings.HasPrefix(string(k), prefix)
}

// Fetcher loads fresh ground truth for one key from the remote source.
type Fetcher func(ctx context.Context) (interface{}, error)

// Transform rewrites a cached value. It receives the current value (nil and
// ok=false when the key is absent) and must return the replacement without
// mutating the input in place: the previous value may still be held as a
// rollback snapshot.
type Transform func(current interface{}, ok bool) interface{}

type entry struct {
	// mu serializes transforms per key, so an optimistic write and a
	// feed-merge write can never interleave on the same entry.
	mu      sync.Mutex
	value   interface{}
	present bool
	stale   bool
	fetcher Fetcher
}

// Store is the in-process cache service. One instance is created at app start
// and passed to every component that reads or writes query state; tests get a
// fresh instance each.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]*entry

	watchMu  sync.RWMutex
	watchers []func(Key)

	quit     chan struct{}
	quitOnce sync.Once

	refetches sync.WaitGroup
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[Key]*entry),
		quit:    make(chan struct{}),
	}
}

func (s *Store) entryFor(key Key) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	return e
}

func (s *Store) lookup(key Key) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

// RegisterFetcher binds the remote loader used when key is invalidated.
func (s *Store) RegisterFetcher(key Key, f Fetcher) {
	e := s.entryFor(key)
	e.mu.Lock()
	e.fetcher = f
	e.mu.Unlock()
}

// Read returns the last known value for key. Never blocks on the remote.
func (s *Store) Read(key Key) (interface{}, bool) {
	e, ok := s.lookup(key)
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.present {
		return nil, false
	}
	return e.value, true
}

// Snapshot captures the current value before a mutation begins, for rollback.
func (s *Store) Snapshot(key Key) (interface{}, bool) {
	return s.Read(key)
}

// Write applies a transform over the current value and stores the result,
// then notifies watchers. Transforms on the same key are serialized.
func (s *Store) Write(key Key, transform Transform) {
	e := s.entryFor(key)
	e.mu.Lock()
	e.value = transform(e.value, e.present)
	e.present = true
	e.stale = false
	e.mu.Unlock()
	s.notify(key)
}

// Restore puts a snapshot back, discarding any writes made since it was
// taken. Used by the mutation pipeline on remote failure.
func (s *Store) Restore(key Key, snapshot interface{}, present bool) {
	e := s.entryFor(key)
	e.mu.Lock()
	e.value = snapshot
	e.present = present
	e.mu.Unlock()
	s.notify(key)
}

// Invalidate marks the entry stale and refetches it from the remote source in
// the background. Called after every mutation settles, success or failure, so
// optimistic arithmetic is always reconciled with ground truth.
func (s *Store) Invalidate(ctx context.Context, key Key) {
	e := s.entryFor(key)
	e.mu.Lock()
	e.stale = true
	fetcher := e.fetcher
	e.mu.Unlock()
	if fetcher == nil {
		return
	}

	s.refetches.Add(1)
	go func() {
		defer s.refetches.Done()
		select {
		case <-s.quit:
			return
		default:
		}
		value, err := fetcher(ctx)
		if err != nil {
			// Entry stays stale; the next invalidation retries.
			return
		}
		e.mu.Lock()
		e.value = value
		e.present = true
		e.stale = false
		e.mu.Unlock()
		s.notify(key)
	}()
}

// InvalidatePrefix invalidates every known key in a family, e.g. all cached
// reaction queries after a toggle settles.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		if k.HasPrefix(prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	for _, k := range keys {
		s.Invalidate(ctx, k)
	}
}

// EachPrefix visits the current value of every present key in a family.
func (s *Store) EachPrefix(prefix string, fn func(Key, interface{})) {
	s.mu.RLock()
	keys := make([]Key, 0, len(s.entries))
	for k := range s.entries {
		if k.HasPrefix(prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.RUnlock()
	for _, k := range keys {
		if v, ok := s.Read(k); ok {
			fn(k, v)
		}
	}
}

// Stale reports whether the entry is waiting on a refetch.
func (s *Store) Stale(key Key) bool {
	e, ok := s.lookup(key)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stale
}

// OnChange registers a watcher invoked with the key after every store change.
// The UI layer uses this as its re-render signal.
func (s *Store) OnChange(fn func(Key)) {
	s.watchMu.Lock()
	s.watchers = append(s.watchers, fn)
	s.watchMu.Unlock()
}

func (s *Store) notify(key Key) {
	s.watchMu.RLock()
	watchers := make([]func(Key), len(s.watchers))
	copy(watchers, s.watchers)
	s.watchMu.RUnlock()
	for _, fn := range watchers {
		fn(key)
	}
}

// Close tears the store down: pending background refetches are abandoned and
// new ones are not started.
func (s *Store) Close() {
	s.quitOnce.Do(func() {
		close(s.quit)
	})
}

// WaitRefetches blocks until in-flight background refetches settle.
func (s *Store) WaitRefetches() {
	s.refetches.Wait()
}
