package services

import (
	"sync"
	"time"
)

// RevocationList records raw token values that must fail verification
// regardless of signature validity. Entries only need to survive until the
// token's natural expiry. Implementations must be safe for concurrent use.
type RevocationList interface {
	// Revoke adds a raw token. Idempotent.
	Revoke(raw string, expiresAt time.Time)
	// RevokeOnce adds a raw token and reports whether this call was the one
	// that revoked it. Used to make session refresh atomic: of two racing
	// refreshes only one observes true.
	RevokeOnce(raw string, expiresAt time.Time) bool
	// Contains reports whether the raw token has been revoked.
	Contains(raw string) bool
}

// MemoryRevocationList is the in-process revocation set. Expired entries are
// pruned lazily whenever the list is touched, so it never grows past the set
// of still-live revoked tokens.
type MemoryRevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (l *MemoryRevocationList) Revoke(raw string, expiresAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	l.entries[raw] = expiresAt
}

func (l *MemoryRevocationList) RevokeOnce(raw string, expiresAt time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune()
	if _, ok := l.entries[raw]; ok {
		return false
	}
	l.entries[raw] = expiresAt
	return true
}

func (l *MemoryRevocationList) Contains(raw string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.entries[raw]
	if !ok {
		return false
	}
	if l.now().After(exp) {
		delete(l.entries, raw)
		return false
	}
	return true
}

func (l *MemoryRevocationList) prune() {
	now := l.now()
	for raw, exp := range l.entries {
		if now.After(exp) {
			delete(l.entries, raw)
		}
	}
}
