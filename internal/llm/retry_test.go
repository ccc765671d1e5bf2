package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	var notified int
	e := NewExecutor(3, time.Second, func(_ string, _, _ int) { notified++ })
	e.SetSleep(noSleep)

	calls := 0
	text, err := e.Execute(context.Background(), "m/p", func(_ context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" || calls != 1 {
		t.Errorf("text=%q calls=%d, want ok/1", text, calls)
	}
	if notified != 0 {
		t.Errorf("expected no retry notifications, got %d", notified)
	}
}

func TestExecute_RetryNotificationCount(t *testing.T) {
	type notification struct{ attempt, max int }
	var got []notification

	e := NewExecutor(3, time.Second, func(_ string, attempt, max int) {
		got = append(got, notification{attempt, max})
	})
	e.SetSleep(noSleep)

	calls := 0
	_, err := e.Execute(context.Background(), "m/p", func(_ context.Context) (string, error) {
		calls++
		return "", &GatewayError{Kind: ErrKindUpstream5xx, Status: 500, Detail: "boom"}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
	// Three attempts mean exactly two retries, reported as 1/2 and 2/2.
	want := []notification{{1, 2}, {2, 2}}
	if len(got) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestExecute_NonRetryableStopsEarly(t *testing.T) {
	e := NewExecutor(3, time.Second, nil)
	e.SetSleep(noSleep)

	calls := 0
	_, err := e.Execute(context.Background(), "m/p", func(_ context.Context) (string, error) {
		calls++
		return "", &GatewayError{Kind: ErrKindUpstream4xx, Status: 401, Detail: "unauthorized"}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("non-retryable error should stop after 1 attempt, got %d", calls)
	}
}

func TestExecute_SucceedsAfterRetry(t *testing.T) {
	e := NewExecutor(3, time.Second, nil)
	e.SetSleep(noSleep)

	calls := 0
	text, err := e.Execute(context.Background(), "m/p", func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &GatewayError{Kind: ErrKindNetwork, Detail: "conn refused"}
		}
		return "recovered", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "recovered" || calls != 3 {
		t.Errorf("text=%q calls=%d, want recovered/3", text, calls)
	}
}

func TestExecute_BackoffDoubles(t *testing.T) {
	var waits []time.Duration
	e := NewExecutor(3, time.Second, nil)
	e.SetSleep(func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	})

	_, _ = e.Execute(context.Background(), "m/p", func(_ context.Context) (string, error) {
		return "", &GatewayError{Kind: ErrKindTimeout, Detail: "slow"}
	})

	want := []time.Duration{time.Second, 2 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %d", len(want), len(waits))
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d = %s, want %s", i, waits[i], want[i])
		}
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	e := NewExecutor(3, time.Second, nil)
	e.SetSleep(noSleep)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := e.Execute(ctx, "m/p", func(_ context.Context) (string, error) {
		calls++
		return "", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 0 {
		t.Errorf("expected no attempts with cancelled context, got %d", calls)
	}
}
