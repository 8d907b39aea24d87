package taskdispatch

import "testing"

func TestKeyRateLimiter_BurstThenDeny(t *testing.T) {
	l := newKeyRateLimiter(60, 2)

	if !l.allow("key-1") {
		t.Fatal("expected first call within burst to be allowed")
	}
	if !l.allow("key-1") {
		t.Fatal("expected second call within burst to be allowed")
	}
	if l.allow("key-1") {
		t.Fatal("expected third call to exceed burst and be denied")
	}
}

func TestKeyRateLimiter_IndependentPerKey(t *testing.T) {
	l := newKeyRateLimiter(60, 1)

	if !l.allow("key-a") {
		t.Fatal("expected key-a's first call to be allowed")
	}
	if !l.allow("key-b") {
		t.Fatal("expected key-b's own budget to be independent of key-a")
	}
}
