package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry for single-node deployments and
// tests. Expired entries are dropped lazily on lookup and in bulk by Sweep.
type MemoryRegistry struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

var _ Registry = (*MemoryRegistry)(nil)

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRegistry) Blacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	exp := m.now().Add(ttl)
	if cur, ok := m.entries[jti]; !ok || exp.After(cur) {
		m.entries[jti] = exp
	}
	return nil
}

func (m *MemoryRegistry) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	exp, ok := m.entries[jti]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if m.now().Before(exp) {
		return true, nil
	}

	m.mu.Lock()
	if cur, ok := m.entries[jti]; ok && !m.now().Before(cur) {
		delete(m.entries, jti)
	}
	m.mu.Unlock()
	return false, nil
}

// Sweep removes expired entries and returns how many were dropped.
func (m *MemoryRegistry) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	n := 0
	for jti, exp := range m.entries {
		if !now.Before(exp) {
			delete(m.entries, jti)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
