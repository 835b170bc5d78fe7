package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/match-hub/internal/platform/resilience"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store is an in-process TTL cache. A zero ttl keeps entries until deleted.
// Every Delete bumps the generation of its key; a load started under an older
// generation is returned to its callers but never stored.
type Store[V any] struct {
	mu          sync.RWMutex
	entries     map[string]entry[V]
	generations map[string]uint64
	ttl         time.Duration
	flight      resilience.SingleFlight[V]
	now         func() time.Time
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		entries:     make(map[string]entry[V]),
		generations: make(map[string]uint64),
		ttl:         ttl,
		now:         time.Now,
	}
}

func (s *Store[V]) Get(_ context.Context, key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}

	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if s.ttl > 0 && !e.expiresAt.After(now) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return zero, false
	}

	return e.value, true
}

func (s *Store[V]) Set(_ context.Context, key string, value V) {
	if key == "" {
		return
	}

	s.mu.Lock()
	s.entries[key] = s.newEntry(value)
	s.mu.Unlock()
}

// setIfGeneration stores value only when key was not deleted since gen was read.
func (s *Store[V]) setIfGeneration(key string, value V, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[key] != gen {
		return false
	}
	s.entries[key] = s.newEntry(value)
	return true
}

func (s *Store[V]) newEntry(value V) entry[V] {
	e := entry[V]{value: value}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	return e
}

func (s *Store[V]) generation(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[key]
}

func (s *Store[V]) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.generations[key]++
	s.mu.Unlock()
}

func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrLoad returns the cached value or runs loader once for all concurrent
// callers of the same key and generation. Loader errors are not cached, and
// neither is a value whose key was deleted while it loaded.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, crerr.New("loader is required")
	}
	if key == "" {
		return loader(ctx)
	}

	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	gen := s.generation(key)
	value, err, _ := s.flight.Do(key+"#"+strconv.FormatUint(gen, 10), func() (V, error) {
		if cached, ok := s.Get(ctx, key); ok {
			return cached, nil
		}

		loaded, loadErr := loader(ctx)
		if loadErr != nil {
			return zero, loadErr
		}
		s.setIfGeneration(key, loaded, gen)
		return loaded, nil
	})
	if err != nil {
		return zero, err
	}

	return value, nil
}
