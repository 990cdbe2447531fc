package jwtx

import (
	"context"
	"sync"
	"time"
)

// Denylist records revoked token ids until the token would have expired
// anyway. Implementations must be safe for concurrent use.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// NopDenylist never revokes anything. Tokens stay valid until they expire.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Time) error { return nil }

func (NopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }

// MemoryDenylist is a process-local Denylist. Entries are dropped lazily
// once their expiry has passed.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist returns an empty in-memory denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[jti] = until
	return nil
}

func (m *MemoryDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.entries[jti]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, jti)
		return false, nil
	}
	return true, nil
}
