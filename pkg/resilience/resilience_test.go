package resilience

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestBreaker(threshold int, clock *fakeClock, transitions *[]string) *Breaker {
	return NewBreaker("query-cache", BreakerConfig{
		FailureThreshold: threshold,
		Cooldown:         time.Second,
		Now:              clock.now,
		OnStateChange: func(name string, from, to State) {
			*transitions = append(*transitions, name+":"+from.String()+"->"+to.String())
		},
	})
}

func TestBreakerOpensAndRecovers(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	b := newTestBreaker(2, clock, &transitions)

	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: err = %v, want boom", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open", b.State())
	}
	called := false
	if err := b.Do(func() error { called = true; return nil }); !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatalf("open breaker ran fn or returned %v", err)
	}
	st := b.Stats()
	if st.Rejected != 1 || st.ConsecutiveFailures != 2 || st.OpenedAt != clock.t || st.Name != "query-cache" {
		t.Errorf("stats = %+v", st)
	}

	clock.t = clock.t.Add(time.Second)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("trial call after cooldown: %v", err)
	}
	if b.State() != StateClosed || !b.Stats().OpenedAt.IsZero() {
		t.Errorf("after trial call: %+v", b.Stats())
	}

	want := []string{
		"query-cache:closed->open",
		"query-cache:open->half-open",
		"query-cache:half-open->closed",
	}
	if !reflect.DeepEqual(transitions, want) {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestBreakerHalfOpenAdmitsOneTrial(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	b := newTestBreaker(1, clock, &transitions)
	b.Do(func() error { return errBoom })

	clock.t = clock.t.Add(2 * time.Second)
	if err := b.Allow(); err != nil {
		t.Fatalf("first trial call rejected: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second concurrent trial call admitted: %v", err)
	}
	b.Record(errBoom)
	if b.State() != StateOpen {
		t.Fatalf("state = %s, want open after failed trial call", b.State())
	}

	clock.t = clock.t.Add(500 * time.Millisecond)
	if err := b.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("cooldown restarts on a failed trial call, got %v", err)
	}

	b.Reset()
	if b.State() != StateClosed || b.Stats().ConsecutiveFailures != 0 {
		t.Errorf("after reset: %+v", b.Stats())
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	b := newTestBreaker(1, clock, &transitions)
	for i := 0; i < 3; i++ {
		b.Do(func() error { return context.Canceled })
	}
	if b.State() != StateClosed || len(transitions) != 0 {
		t.Errorf("state = %s, transitions = %v", b.State(), transitions)
	}
	if err := b.Do(func() error { return context.DeadlineExceeded }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal(err)
	}
	if b.State() != StateOpen {
		t.Errorf("timeout should count as a failure, state = %s", b.State())
	}
}

func TestRetry(t *testing.T) {
	fast := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("eventual success", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), "op", fast, func() error {
			calls++
			if calls < 3 {
				return errBoom
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("exhausted", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), "op", fast, func() error { calls++; return errBoom })
		if !errors.Is(err, errBoom) || calls != 3 {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("permanent stops immediately", func(t *testing.T) {
		calls := 0
		err := Retry(context.Background(), "op", fast, func() error { calls++; return Permanent(errBoom) })
		if err != errBoom || calls != 1 {
			t.Errorf("err = %v, calls = %d", err, calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, "op", fast, func() error { return errBoom })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}
