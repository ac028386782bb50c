// Package kv is the injected counter/flag store used for magic-link
// single-use consumption and issuance rate limits. The in-memory
// implementation backs tests and single-node runs; the Redis implementation
// is the shared production store.
package kv

import (
	"context"
	"sync"
	"time"
)

type Store interface {
	// Incr increments a counter, setting its TTL on first increment, and
	// returns the new value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// SetOnce marks a key, returning false when it was already set.
	SetOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	e, ok := m.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = memoryEntry{count: 0, expiresAt: now.Add(ttl)}
	}
	e.count++
	m.entries[key] = e

	return e.count, nil
}

func (m *Memory) SetOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	m.entries[key] = memoryEntry{count: 1, expiresAt: now.Add(ttl)}

	return true, nil
}
