package bili

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryDoExhaustsAllAttempts(t *testing.T) {
	policy := RetryPolicy{Max: 3, Interval: time.Millisecond}
	wantErr := errors.New("boom")

	calls := 0
	got, err := RetryDo(context.Background(), policy, "always fails", func() (string, error) {
		calls++
		return "partial", wantErr
	})

	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3", calls)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
	if got != "" {
		t.Errorf("got = %q, want zero value on exhaustion", got)
	}
}

func TestRetryDoStopsOnSuccess(t *testing.T) {
	policy := RetryPolicy{Max: 5, Interval: time.Millisecond}

	calls := 0
	got, err := RetryDo(context.Background(), policy, "third try", func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly 3 for two failures then success", calls)
	}
	if got != 42 {
		t.Errorf("got = %d, want 42", got)
	}
}

func TestRetryDoFirstAttemptNoWait(t *testing.T) {
	policy := RetryPolicy{Max: 10, Interval: time.Hour}

	start := time.Now()
	got, err := RetryDo(context.Background(), policy, "instant", func() (bool, error) {
		return true, nil
	})
	if err != nil || !got {
		t.Fatalf("got %v, %v", got, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("first success waited %v", elapsed)
	}
}

func TestRetryDoContextAlreadyCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryDo(ctx, RetryPolicy{Max: 3, Interval: time.Millisecond}, "canceled", func() (string, error) {
		calls++
		return "", errors.New("should not run")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Errorf("calls = %d, want 0 after cancellation", calls)
	}
}

func TestRetryDoCancelAbortsWait(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	_, err := RetryDo(ctx, RetryPolicy{Max: 3, Interval: time.Hour}, "slow wait", func() (string, error) {
		calls++
		return "", errors.New("fail into the wait")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %v, wait was not aborted", elapsed)
	}
}

func TestRetryDoClampsMax(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), RetryPolicy{Max: 0, Interval: time.Millisecond}, "clamped", func() (string, error) {
		calls++
		return "", errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for Max 0", calls)
	}
}
