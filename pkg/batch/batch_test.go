package batch

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapPreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4}
	res := Map(items, nil, func(n int) (int, error) {
		return n * 10, nil
	})
	if len(res.Failures) != 0 {
		t.Fatalf("Failures = %v", res.Failures)
	}
	for i, want := range []int{10, 20, 30, 40} {
		if res.Successes[i] != want {
			t.Errorf("Successes[%d] = %d, want %d", i, res.Successes[i], want)
		}
	}
}

func TestMapIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	res := Map([]int{1, 2, 3}, nil, func(n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	if len(res.Successes) != 2 {
		t.Fatalf("Successes = %v", res.Successes)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %v", res.Failures)
	}
	f := res.Failures[0]
	if f.Index != 1 || !errors.Is(f.Err, boom) {
		t.Errorf("Failure = %+v", f)
	}
}

func TestMapRecoversPanic(t *testing.T) {
	res := Map([]int{1, 2}, nil, func(n int) (int, error) {
		if n == 1 {
			panic("unexpected nil")
		}
		return n, nil
	})
	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %v", res.Failures)
	}
	if !strings.Contains(res.Failures[0].Err.Error(), "panic") {
		t.Errorf("Err = %v, want panic mention", res.Failures[0].Err)
	}
	if len(res.Successes) != 1 || res.Successes[0] != 2 {
		t.Errorf("Successes = %v, batch must continue past a panic", res.Successes)
	}
}

func TestFailureLabels(t *testing.T) {
	res := Map([]string{"Hagia Sophia"},
		func(s string) string { return fmt.Sprintf("Failed to publish %q", s) },
		func(s string) (string, error) { return "", errors.New("slug taken") },
	)
	got := res.ErrorStrings()
	if len(got) != 1 {
		t.Fatalf("ErrorStrings = %v", got)
	}
	if got[0] != `Failed to publish "Hagia Sophia": slug taken` {
		t.Errorf("message = %q", got[0])
	}
}

func TestFailureIndexFallback(t *testing.T) {
	res := Map([]int{7}, nil, func(int) (int, error) { return 0, errors.New("nope") })
	if got := res.Failures[0].Error(); got != "item 0: nope" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorStringsNilWhenEmpty(t *testing.T) {
	res := Map([]int{1}, nil, func(n int) (int, error) { return n, nil })
	if res.ErrorStrings() != nil {
		t.Errorf("ErrorStrings = %v, want nil", res.ErrorStrings())
	}
}

func TestMapEmptyInput(t *testing.T) {
	res := Map([]int{}, nil, func(int) (int, error) { return 0, nil })
	if len(res.Successes) != 0 || len(res.Failures) != 0 {
		t.Errorf("Result = %+v, want empty", res)
	}
}
