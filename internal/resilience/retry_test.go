package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts:       attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), DefaultPolicy(), func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || v != "ok" {
		t.Fatalf("got (%q, %v)", v, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_SuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastPolicy(3), func(_ context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, NewTransientError(errors.New("overloaded"), 529)
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || calls != 3 {
		t.Errorf("got v=%d calls=%d", v, calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(3), func(_ context.Context) (int, error) {
		calls++
		return 7, NewTransientError(errors.New("always"), 503)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetry_PermanentErrorStops(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), fastPolicy(5), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second}
	calls := 0
	_, err := Retry(ctx, p, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, NewTransientError(errors.New("flaky"), 502)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetry_CustomRetryableAndHook(t *testing.T) {
	special := errors.New("special")
	var hooked []int
	p := fastPolicy(3)
	p.Retryable = func(err error) bool { return errors.Is(err, special) }
	p.OnRetry = func(attempt int, _ error) { hooked = append(hooked, attempt) }

	_, _ = Retry(context.Background(), p, func(_ context.Context) (int, error) {
		return 0, special
	})
	if len(hooked) != 2 || hooked[0] != 1 || hooked[1] != 2 {
		t.Errorf("unexpected hook calls %v", hooked)
	}
}

func TestPolicy_Backoff(t *testing.T) {
	p := Policy{InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}.withDefaults()
	p.Jitter = 0
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, w := range want {
		if got := p.backoff(i); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i, got, w)
		}
	}

	p.Jitter = 0.5
	for i := 0; i < 50; i++ {
		d := p.backoff(0)
		if d < 50*time.Millisecond || d > 150*time.Millisecond {
			t.Fatalf("jittered backoff %v out of range", d)
		}
	}
}

func TestPolicyFrom(t *testing.T) {
	p := PolicyFrom(0, 0, 0)
	if p.Attempts != 3 || p.InitialBackoff != 500*time.Millisecond {
		t.Errorf("defaults not kept: %+v", p)
	}
	p = PolicyFrom(5, 10, 20)
	if p.Attempts != 5 || p.InitialBackoff != 10*time.Millisecond || p.MaxBackoff != 20*time.Millisecond {
		t.Errorf("overrides not applied: %+v", p)
	}
}

func TestLogRetries(t *testing.T) {
	hook := LogRetries("recommend")
	hook(1, errors.New("x"))
}
