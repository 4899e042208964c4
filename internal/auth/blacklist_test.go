package auth

import (
	"testing"
	"time"
)

func TestBlacklistLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := NewBlacklist()
	b.now = func() time.Time { return now }

	b.Add("token-a", now.Add(10*time.Minute))
	b.Add("token-b", now.Add(time.Minute))
	if !b.Contains("token-a") || !b.Contains("token-b") {
		t.Fatalf("fresh entries missing")
	}
	if b.Contains("token-c") {
		t.Fatalf("unknown token reported revoked")
	}

	// Already-expired entries are never recorded.
	b.Add("token-d", now.Add(-time.Second))
	if b.Contains("token-d") {
		t.Fatalf("expired entry was recorded")
	}

	// Lookup past expiry prunes the entry.
	now = now.Add(2 * time.Minute)
	if b.Contains("token-b") {
		t.Fatalf("expired entry reported revoked")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 live entry, got %d", b.Len())
	}

	// Insert prunes everything stale.
	now = now.Add(20 * time.Minute)
	b.Add("token-e", now.Add(time.Minute))
	if b.Len() != 1 {
		t.Fatalf("stale entries survived insert: %d", b.Len())
	}
}
