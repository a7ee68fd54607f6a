package services

import (
	"testing"
	"time"
)

func TestCooldownRejectsWithinWindow(t *testing.T) {
	clock := newMutableClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	limiter := NewCooldownLimiter(clock.Now)

	if err := limiter.AllowLogin("meena@example.com", 5*time.Second); err != nil {
		t.Fatalf("first request: %v", err)
	}

	err := limiter.AllowLogin("meena@example.com", 5*time.Second)
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if want := "please wait 5 seconds before requesting another code"; err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}

	clock.Advance(3 * time.Second)
	err = limiter.AllowLogin("meena@example.com", 5*time.Second)
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limited at 3s, got %v", err)
	}
	if want := "please wait 2 seconds before requesting another code"; err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}

	clock.Advance(2 * time.Second)
	if err := limiter.AllowLogin("meena@example.com", 5*time.Second); err != nil {
		t.Fatalf("after the cooldown: %v", err)
	}
}

func TestCooldownIsPerActionAndEmail(t *testing.T) {
	clock := newMutableClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	limiter := NewCooldownLimiter(clock.Now)

	if err := limiter.AllowLogin("a@example.com", 5*time.Second); err != nil {
		t.Fatalf("login a: %v", err)
	}
	// A different email is unaffected.
	if err := limiter.AllowLogin("b@example.com", 5*time.Second); err != nil {
		t.Fatalf("login b: %v", err)
	}
	// A different action for the same email is unaffected.
	if err := limiter.AllowEnable2FA("a@example.com", 10*time.Second); err != nil {
		t.Fatalf("enable2fa a: %v", err)
	}
	if err := limiter.AllowLogin("a@example.com", 5*time.Second); !IsRateLimited(err) {
		t.Fatalf("repeat login a should be limited, got %v", err)
	}
}

func TestCooldownPrunesIdleEntries(t *testing.T) {
	clock := newMutableClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	limiter := NewCooldownLimiter(clock.Now)

	if err := limiter.AllowLogin("a@example.com", 5*time.Second); err != nil {
		t.Fatalf("login a: %v", err)
	}
	if err := limiter.AllowLogin("b@example.com", 5*time.Second); err != nil {
		t.Fatalf("login b: %v", err)
	}

	clock.Advance(11 * time.Second) // past 2x cooldown
	if err := limiter.AllowLogin("a@example.com", 5*time.Second); err != nil {
		t.Fatalf("login a after idle: %v", err)
	}

	limiter.mu.Lock()
	n := len(limiter.entries)
	limiter.mu.Unlock()
	if n != 1 {
		t.Fatalf("entries = %d, want 1 after pruning", n)
	}
}
