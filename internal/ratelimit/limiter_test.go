package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := NewLimiter("per-test", 3, time.Hour)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.CheckAndRegister(ctx); err != nil {
			t.Fatalf("unexpected error on request %d: %v", i, err)
		}
	}
	status := l.Status()
	if status.Count != 3 {
		t.Errorf("expected count 3, got %d", status.Count)
	}
}

func TestLimiter_BlocksUntilWindowClears(t *testing.T) {
	l := NewLimiter("per-test", 1, 30*time.Millisecond)
	ctx := context.Background()

	if err := l.CheckAndRegister(ctx); err != nil {
		t.Fatalf("first request: %v", err)
	}

	start := time.Now()
	if err := l.CheckAndRegister(ctx); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Errorf("expected second request to block for roughly the window duration")
	}
}

func TestLimiter_RespectsContextCancellation(t *testing.T) {
	l := NewLimiter("per-test", 1, time.Hour)
	ctx := context.Background()
	if err := l.CheckAndRegister(ctx); err != nil {
		t.Fatalf("first request: %v", err)
	}

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.CheckAndRegister(cctx); err == nil {
		t.Errorf("expected context deadline error, got nil")
	}
}

func TestCompositeLimiter_RetriesRetryableErrors(t *testing.T) {
	c := NewCompositeLimiter(3, time.Millisecond, NewLimiter("m", 100, time.Hour))
	attempts := 0
	result, err := c.Execute(context.Background(), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("429 rate limit exceeded")
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %q", result)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestCompositeLimiter_NonRetryableFailsImmediately(t *testing.T) {
	c := NewCompositeLimiter(3, time.Millisecond, NewLimiter("m", 100, time.Hour))
	attempts := 0
	_, err := c.Execute(context.Background(), func() (string, error) {
		attempts++
		return "", errors.New("invalid api key")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retryable error, got %d", attempts)
	}
}

func TestCompositeLimiter_ExhaustsRetriesThenFails(t *testing.T) {
	c := NewCompositeLimiter(2, time.Millisecond, NewLimiter("m", 100, time.Hour))
	attempts := 0
	_, err := c.Execute(context.Background(), func() (string, error) {
		attempts++
		return "", errors.New("429 too many requests")
	})
	if err == nil {
		t.Fatalf("expected error after exhausting retries")
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
}
