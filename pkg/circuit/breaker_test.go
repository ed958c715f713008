package circuit

import (
	"errors"
	"testing"
	"time"
)

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b := New("test", 2, time.Minute)
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		if err := b.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen after %d failures", err, 2)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	b := New("test", 2, time.Minute)
	boom := errors.New("boom")

	b.Execute(func() error { return boom })
	b.Execute(func() error { return nil })
	b.Execute(func() error { return boom })

	// One failure after a success: still closed.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("err = %v, breaker should still be closed", err)
	}
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond)
	boom := errors.New("boom")

	b.Execute(func() error { return boom })
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen while open", err)
	}

	time.Sleep(15 * time.Millisecond)

	// Probe allowed after the reset timeout; success closes the breaker.
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe err = %v", err)
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("err = %v, breaker should be closed again", err)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := New("test", 1, 10*time.Millisecond)
	boom := errors.New("boom")

	b.Execute(func() error { return boom })
	time.Sleep(15 * time.Millisecond)
	b.Execute(func() error { return boom })

	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen after failed probe", err)
	}
}
