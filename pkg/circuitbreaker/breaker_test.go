package circuitbreaker

import (
	"testing"
	"time"
)

func newTestBreaker() *CircuitBreaker {
	return New(Config{
		FailureThreshold: 3,
		ResetTimeout:     50 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	})
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 2; i++ {
		cb.Failure()
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %s before threshold, want closed", cb.GetState())
	}

	cb.Failure()
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s after threshold, want open", cb.GetState())
	}
	if cb.Allow() {
		t.Error("open breaker must deny calls")
	}
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker()

	cb.Failure()
	cb.Failure()
	cb.Success()
	cb.Failure()
	cb.Failure()

	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed after counter reset", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenProbing(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		cb.Failure()
	}
	time.Sleep(60 * time.Millisecond)

	t.Run("first call after timeout probes", func(t *testing.T) {
		if !cb.Allow() {
			t.Fatal("breaker must allow a probe after the reset timeout")
		}
		if cb.GetState() != StateHalfOpen {
			t.Fatalf("state = %s, want half-open", cb.GetState())
		}
	})

	t.Run("probe budget is bounded", func(t *testing.T) {
		if !cb.Allow() {
			t.Fatal("second probe should be allowed")
		}
		if cb.Allow() {
			t.Error("probes beyond the half-open budget must be denied")
		}
	})

	t.Run("successful probe closes the breaker", func(t *testing.T) {
		cb.Success()
		if cb.GetState() != StateClosed {
			t.Errorf("state = %s, want closed", cb.GetState())
		}
	})
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb := newTestBreaker()

	for i := 0; i < 3; i++ {
		cb.Failure()
	}
	time.Sleep(60 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("probe should be allowed")
	}
	cb.Failure()

	if cb.GetState() != StateOpen {
		t.Errorf("state = %s, want open after failed probe", cb.GetState())
	}
	if cb.Allow() {
		t.Error("reopened breaker must deny calls")
	}
}
