package contextstore

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
)

const defaultMemoryCapacity = 4096

type memoryEntry struct {
	ctx       *convo.Context
	expiresAt time.Time
}

// MemoryStore is the in-process fallback backend: an LRU of contexts with
// lazy expiry plus a Sweep hook for the periodic cleanup job.
type MemoryStore struct {
	mu    sync.Mutex
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

var (
	_ convo.Store   = (*MemoryStore)(nil)
	_ convo.Sweeper = (*MemoryStore)(nil)
)

// NewMemoryStore builds an in-memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cache, _ := lru.New(defaultMemoryCapacity)
	return &MemoryStore{
		cache: cache,
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, identity string) (*convo.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok := s.cache.Get(identity)
	if !ok {
		return nil, nil
	}
	entry := raw.(memoryEntry)
	if s.now().After(entry.expiresAt) {
		s.cache.Remove(identity)
		return nil, nil
	}
	return entry.ctx, nil
}

func (s *MemoryStore) Save(_ context.Context, identity string, c *convo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(identity, memoryEntry{ctx: c, expiresAt: s.now().Add(s.ttl)})
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(identity)
	return nil
}

// Sweep evicts expired entries and reports how many were removed.
func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, key := range s.cache.Keys() {
		raw, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if s.now().After(raw.(memoryEntry).expiresAt) {
			s.cache.Remove(key)
			removed++
		}
	}
	return removed, nil
}
