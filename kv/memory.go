package kv

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"
)

const memoryShards = 64

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// Memory is an in-process Store. Keys are spread across a fixed set of
// shards so unrelated keys never contend on the same lock. Expired
// entries are dropped lazily on read; an optional background sweeper
// reclaims memory held by keys that are never read again.
type Memory struct {
	shards [memoryShards]*memoryShard
	now    func() time.Time

	sweepInterval time.Duration
	done          chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup
}

// MemoryOption configures a Memory store at construction time.
type MemoryOption func(*Memory)

// WithNowFunc overrides the time source. Intended for tests that need
// deterministic expiry.
func WithNowFunc(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSweepInterval enables a background goroutine that periodically
// removes expired entries. Without it the store is still correct
// (expiry is checked on every read) but unread keys linger until
// swept or deleted.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(m *Memory) {
		m.sweepInterval = interval
	}
}

// NewMemory creates an in-process TTL store.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		now:  time.Now,
		done: make(chan struct{}),
	}
	for i := range m.shards {
		m.shards[i] = &memoryShard{entries: make(map[string]memoryEntry)}
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.sweepInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop()
	}

	return m
}

// Close stops the background sweeper, if one was started.
func (m *Memory) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()
}

func (m *Memory) shard(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%memoryShards]
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("kv: ttl must be positive")
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	s := m.shard(key)
	s.mu.Lock()
	s.entries[key] = memoryEntry{value: stored, expiresAt: m.now().Add(ttl)}
	s.mu.Unlock()

	return nil
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(entry.expiresAt) {
		delete(s.entries, key)
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// GetDel implements Store. The read and the removal happen under one
// shard lock, so two concurrent consumers of the same key cannot both
// observe the value.
func (m *Memory) GetDel(_ context.Context, key string) ([]byte, error) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	delete(s.entries, key)

	if !m.now().Before(entry.expiresAt) {
		return nil, ErrNotFound
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (m *Memory) sweepLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.done:
			return
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	for _, s := range m.shards {
		s.mu.Lock()
		for key, entry := range s.entries {
			if !now.Before(entry.expiresAt) {
				delete(s.entries, key)
			}
		}
		s.mu.Unlock()
	}
}
