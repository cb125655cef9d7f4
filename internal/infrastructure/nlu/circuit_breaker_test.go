package nlu

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		MaxHalfOpenCalls: 2,
	}
}

func failOnce(cb *CircuitBreaker, t *testing.T) {
	t.Helper()
	err := cb.Execute("classify", func() error { return errors.New("boom") })
	if err == nil {
		t.Fatal("expected the wrapped error")
	}
}

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig())

	for i := 0; i < 3; i++ {
		if cb.GetState() != StateClosed {
			t.Fatalf("state before failure %d = %v, want closed", i, cb.GetState())
		}
		failOnce(cb, t)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state after threshold = %v, want open", cb.GetState())
	}

	// Open circuit fails fast without running the function.
	ran := false
	err := cb.Execute("classify", func() error { ran = true; return nil })
	if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Fatalf("error = %v, want open-circuit error", err)
	}
	if ran {
		t.Error("function ran while the circuit was open")
	}
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig())

	failOnce(cb, t)
	failOnce(cb, t)
	if err := cb.Execute("classify", func() error { return nil }); err != nil {
		t.Fatalf("execute: %v", err)
	}
	failOnce(cb, t)
	failOnce(cb, t)

	if cb.GetState() != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenAfterTimeoutThenCloses(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig())

	for i := 0; i < 3; i++ {
		failOnce(cb, t)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}

	// Age the last failure past the open timeout.
	cb.mu.Lock()
	cb.lastFailureTime = time.Now().Add(-time.Minute)
	cb.mu.Unlock()

	if err := cb.Execute("classify", func() error { return nil }); err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("state after one probe success = %v, want half-open", cb.GetState())
	}

	if err := cb.Execute("classify", func() error { return nil }); err != nil {
		t.Fatalf("second probe call: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("state after success threshold = %v, want closed", cb.GetState())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(testBreakerConfig())

	for i := 0; i < 3; i++ {
		failOnce(cb, t)
	}
	cb.mu.Lock()
	cb.lastFailureTime = time.Now().Add(-time.Minute)
	cb.mu.Unlock()

	failOnce(cb, t)
	if cb.GetState() != StateOpen {
		t.Errorf("state after half-open failure = %v, want open", cb.GetState())
	}
}

func TestCircuitBreaker_DisabledAlwaysAllows(t *testing.T) {
	cfg := testBreakerConfig()
	cfg.Enabled = false
	cb := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		failOnce(cb, t)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("disabled breaker state = %v, want closed", cb.GetState())
	}
	if err := cb.Execute("classify", func() error { return nil }); err != nil {
		t.Errorf("execute: %v", err)
	}
}
