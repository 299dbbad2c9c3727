package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errSend = errors.New("send failed")

func fail() error    { return errSend }
func succeed() error { return nil }

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		SuccessThreshold:    2,
		Timeout:             20 * time.Millisecond,
		HalfOpenMaxRequests: 2,
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		if err := cb.Execute(fail); !errors.Is(err, errSend) {
			t.Fatalf("attempt %d: err = %v, want errSend", i, err)
		}
	}

	if err := cb.Execute(succeed); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New(testConfig())

	cb.Execute(fail)
	cb.Execute(fail)
	cb.Execute(succeed)
	cb.Execute(fail)
	cb.Execute(fail)

	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}
}

func TestHalfOpenAfterTimeout(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		cb.Execute(fail)
	}
	time.Sleep(30 * time.Millisecond)

	// First probe passes through.
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("probe err = %v, want nil", err)
	}
	if cb.GetState() != StateHalfOpen {
		t.Fatalf("state = %v, want half-open", cb.GetState())
	}

	// Second success closes the breaker.
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("probe err = %v, want nil", err)
	}
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("post-close err = %v, want nil", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}
}

func TestFailedProbeReopens(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		cb.Execute(fail)
	}
	time.Sleep(30 * time.Millisecond)

	if err := cb.Execute(fail); !errors.Is(err, errSend) {
		t.Fatalf("probe err = %v, want errSend", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.GetState())
	}
	if err := cb.Execute(succeed); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
}

func TestReset(t *testing.T) {
	cb := New(testConfig())

	for i := 0; i < 3; i++ {
		cb.Execute(fail)
	}
	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.GetState())
	}
	if err := cb.Execute(succeed); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
}
