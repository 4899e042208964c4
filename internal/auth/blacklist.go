package auth

import (
	"sync"
	"time"
)

// Blacklist records revoked tokens until their natural expiry. It is owned
// by the application dependency graph and cleared on restart; entries are
// pruned lazily on insert and lookup.
type Blacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewBlacklist returns an empty process-lifetime blacklist.
func NewBlacklist() *Blacklist {
	return &Blacklist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Add records the raw token string until expiresAt.
func (b *Blacklist) Add(token string, expiresAt time.Time) {
	if token == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for k, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, k)
		}
	}
	if expiresAt.After(now) {
		b.entries[token] = expiresAt
	}
}

// Contains reports whether the token is currently revoked.
func (b *Blacklist) Contains(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	exp, ok := b.entries[token]
	if !ok {
		return false
	}
	if b.now().After(exp) {
		delete(b.entries, token)
		return false
	}
	return true
}

// Len returns the number of live entries, pruning stale ones first.
func (b *Blacklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	for k, exp := range b.entries {
		if now.After(exp) {
			delete(b.entries, k)
		}
	}
	return len(b.entries)
}
