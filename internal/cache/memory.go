package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local TTL cache suitable for single-instance
// deployments and tests.
type Memory struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[Key]memoryEntry
}

type memoryEntry struct {
	balance   int64
	expiresAt time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl, entries: make(map[Key]memoryEntry)}
}

func (m *Memory) Get(_ context.Context, key Key) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return 0, ErrMiss
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return 0, ErrMiss
	}
	return e.balance, nil
}

func (m *Memory) Set(_ context.Context, key Key, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{balance: balance, expiresAt: time.Now().Add(m.ttl)}
	return nil
}

func (m *Memory) Invalidate(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

var _ BalanceCache = (*Memory)(nil)
