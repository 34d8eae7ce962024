package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"autotrader/internal/domain"

	"golang.org/x/sync/singleflight"
)

var ErrMiss = errors.New("cache miss")

const (
	defaultMaxEntries = 1000
	targetLoadFactor  = 0.9
)

// DefaultTTLs is the fixed lifetime of each source kind.
var DefaultTTLs = map[domain.SourceKind]time.Duration{
	domain.SourceMarket:     60 * time.Second,
	domain.SourceHistory:    2 * time.Minute,
	domain.SourceNews:       10 * time.Minute,
	domain.SourceSentiment:  15 * time.Minute,
	domain.SourceIndicators: 30 * time.Minute,
}

// Observer receives counter updates. *metrics.Recorder satisfies it.
type Observer interface {
	CacheHit(kind string)
	CacheMiss(kind string)
	CacheError(kind string)
	CacheEvicted(n int)
	CacheSize(n int)
}

type entry struct {
	payload   any
	kind      domain.SourceKind
	writtenAt time.Time
	expiresAt time.Time
	seq       uint64
}

// Store is an in-memory cache with a fixed TTL per source kind and a
// capacity ceiling. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	seq        uint64
	ttls       map[domain.SourceKind]time.Duration
	maxEntries int
	now        func() time.Time
	observer   Observer
	group      singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	errors    atomic.Uint64
	evictions atomic.Uint64
}

type Option func(*Store)

// WithTTLs overrides lifetimes for the given kinds. Other kinds keep DefaultTTLs.
func WithTTLs(ttls map[domain.SourceKind]time.Duration) Option {
	return func(s *Store) {
		for kind, ttl := range ttls {
			if ttl > 0 {
				s.ttls[kind] = ttl
			}
		}
	}
}

func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]*entry),
		ttls:       make(map[domain.SourceKind]time.Duration, len(DefaultTTLs)),
		maxEntries: defaultMaxEntries,
		now:        time.Now,
	}
	for kind, ttl := range DefaultTTLs {
		s.ttls[kind] = ttl
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the lifetime applied to kind.
func (s *Store) TTL(kind domain.SourceKind) time.Duration {
	return s.ttls[kind]
}

// Get returns the payload stored for (kind, params). Entries past their
// expiry are never returned, swept or not.
func (s *Store) Get(kind domain.SourceKind, params map[string]string) (any, bool) {
	key := Key(kind, params)
	now := s.now()

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.recordMiss(kind)
		return nil, false
	}
	if now.After(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		s.recordMiss(kind)
		return nil, false
	}

	s.hits.Add(1)
	if s.observer != nil {
		s.observer.CacheHit(string(kind))
	}
	return e.payload, true
}

// Set stores payload with the kind's TTL. When the store grows past its
// ceiling the oldest entries by write time are evicted down to 90% load.
func (s *Store) Set(kind domain.SourceKind, params map[string]string, payload any) {
	key := Key(kind, params)
	now := s.now()

	s.mu.Lock()
	s.seq++
	s.entries[key] = &entry{
		payload:   payload,
		kind:      kind,
		writtenAt: now,
		expiresAt: now.Add(s.ttls[kind]),
		seq:       s.seq,
	}
	evicted := 0
	if len(s.entries) > s.maxEntries {
		evicted = s.evictOldestLocked()
	}
	size := len(s.entries)
	s.mu.Unlock()

	if evicted > 0 {
		s.evictions.Add(uint64(evicted))
	}
	if s.observer != nil {
		if evicted > 0 {
			s.observer.CacheEvicted(evicted)
		}
		s.observer.CacheSize(size)
	}
}

// Clear drops every entry of the given kinds, or everything when none are given.
func (s *Store) Clear(kinds ...domain.SourceKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(kinds) == 0 {
		n := len(s.entries)
		s.entries = make(map[string]*entry)
		return n
	}

	drop := make(map[domain.SourceKind]struct{}, len(kinds))
	for _, k := range kinds {
		drop[k] = struct{}{}
	}
	removed := 0
	for key, e := range s.entries {
		if _, ok := drop[e.kind]; ok {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep removes expired entries and returns how many were dropped.
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	size := len(s.entries)
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.CacheSize(size)
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RecordError counts an upstream fetch failure for kind.
func (s *Store) RecordError(kind domain.SourceKind) {
	s.errors.Add(1)
	if s.observer != nil {
		s.observer.CacheError(string(kind))
	}
}

// GetOrFetch returns the cached value for (kind, params) or calls fetch and
// stores its result. Concurrent misses on one key share a single fetch.
// Failed fetches are counted and returned; nothing is cached for them.
func GetOrFetch[T any](ctx context.Context, s *Store, kind domain.SourceKind, params map[string]string, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(kind, params); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	key := Key(kind, params)
	v, err, _ := s.group.Do(key, func() (any, error) {
		result, err := fetch(ctx)
		if err != nil {
			s.RecordError(kind)
			return nil, err
		}
		s.Set(kind, params, result)
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, ErrMiss
	}
	return typed, nil
}

func (s *Store) recordMiss(kind domain.SourceKind) {
	s.misses.Add(1)
	if s.observer != nil {
		s.observer.CacheMiss(string(kind))
	}
}

func (s *Store) evictOldestLocked() int {
	target := int(float64(s.maxEntries) * targetLoadFactor)
	excess := len(s.entries) - target
	if excess <= 0 {
		return 0
	}

	type aged struct {
		key       string
		writtenAt time.Time
		seq       uint64
	}
	all := make([]aged, 0, len(s.entries))
	for key, e := range s.entries {
		all = append(all, aged{key: key, writtenAt: e.writtenAt, seq: e.seq})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].writtenAt.Equal(all[j].writtenAt) {
			return all[i].seq < all[j].seq
		}
		return all[i].writtenAt.Before(all[j].writtenAt)
	})
	for i := 0; i < excess; i++ {
		delete(s.entries, all[i].key)
	}
	return excess
}
