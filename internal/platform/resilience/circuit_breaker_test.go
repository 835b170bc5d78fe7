package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestCircuitBreaker_BasicTransitions(t *testing.T) {
	b := NewCircuitBreaker(2, 5*time.Second, 1)

	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	if err := b.Allow(); err != nil {
		t.Fatalf("expected allow in closed state: %v", err)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after first failure, got %s", state)
	}

	b.RecordFailure()
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after threshold failures, got %s", state)
	}

	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected circuit open error, got %v", err)
	}

	now = now.Add(6 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected half-open probe to pass, got %v", err)
	}
	if state := b.State(); state != CircuitStateHalfOpen {
		t.Fatalf("expected half-open state, got %s", state)
	}

	b.RecordSuccess()
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("expected closed after successful half-open probe, got %s", state)
	}
}

func TestCircuitBreaker_ExecuteClassifiesFailures(t *testing.T) {
	b := NewCircuitBreaker(1, time.Minute, 1)
	permanent := errors.New("match not found")
	transient := errors.New("provider timeout")
	isTransient := func(err error) bool { return errors.Is(err, transient) }

	if err := b.Execute(func() error { return permanent }, isTransient); !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error passthrough, got %v", err)
	}
	if state := b.State(); state != CircuitStateClosed {
		t.Fatalf("non-transient error must not trip breaker, got %s", state)
	}

	if err := b.Execute(func() error { return transient }, isTransient); !errors.Is(err, transient) {
		t.Fatalf("expected transient error passthrough, got %v", err)
	}
	if state := b.State(); state != CircuitStateOpen {
		t.Fatalf("expected open after transient failure, got %s", state)
	}

	called := false
	err := b.Execute(func() error { called = true; return nil }, isTransient)
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("expected rejection without calling fn, got err=%v called=%t", err, called)
	}
}

func TestNewCircuitBreakerFromConfig(t *testing.T) {
	if b := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: false}); b != nil {
		t.Fatalf("expected nil breaker when disabled")
	}

	b := NewCircuitBreakerFromConfig(CircuitBreakerConfig{Enabled: true})
	if b == nil {
		t.Fatalf("expected breaker when enabled")
	}
	defaults := DefaultCircuitBreakerConfig()
	if b.failureThreshold != defaults.FailureThreshold || b.openTimeout != defaults.OpenTimeout || b.halfOpenMaxReq != defaults.HalfOpenMaxReq {
		t.Fatalf("expected defaults to be applied, got %+v", b)
	}

	var nilBreaker *CircuitBreaker
	calls := 0
	if err := nilBreaker.Execute(func() error { calls++; return nil }, nil); err != nil || calls != 1 {
		t.Fatalf("nil breaker should run fn directly, err=%v calls=%d", err, calls)
	}
}
