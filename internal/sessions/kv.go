package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/willemschots/newsletter/internal/errorz"
)

// KV is a key value store with expiring entries.
// Get returns errorz.ErrNotFound for absent or expired keys.
type KV interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryKV is an in-process KV. Sessions don't survive a restart and
// aren't shared between instances, so it's meant for development and tests.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]memEntry

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		entries: make(map[string]memEntry),
		NowFunc: time.Now,
	}
}

func (m *MemoryKV) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)

	m.entries[key] = memEntry{
		value:     v,
		expiresAt: m.NowFunc().Add(ttl),
	}

	m.sweep()
	return nil
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, errorz.ErrNotFound
	}

	if !m.NowFunc().Before(e.expiresAt) {
		delete(m.entries, key)
		return nil, errorz.ErrNotFound
	}

	v := make([]byte, len(e.value))
	copy(v, e.value)
	return v, nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Len returns the number of entries, including expired ones that weren't swept yet.
func (m *MemoryKV) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// sweep removes expired entries. Must be called with mu held.
func (m *MemoryKV) sweep() {
	now := m.NowFunc()
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
