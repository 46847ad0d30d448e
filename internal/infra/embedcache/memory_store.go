package embedcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/product-support-bot/pkg/util"
)

type memoryEntry struct {
	embedding []float32
	expiresAt time.Time
}

// MemoryStore keeps embeddings in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]float32, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && util.NowUTC().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return append([]float32(nil), entry.embedding...), true, nil
}

// Set implements Store. A non-positive ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, embedding []float32, ttl time.Duration) error {
	entry := memoryEntry{embedding: append([]float32(nil), embedding...)}
	if ttl > 0 {
		entry.expiresAt = util.NowUTC().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)
