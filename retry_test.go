package heartbeat

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithBoundedRetry_ZeroMeansSingleAttempt(t *testing.T) {
	calls := 0
	err := withBoundedRetry(context.Background(), 0, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call, got %d", calls)
	}
}

func TestWithBoundedRetry_RetriesUpToNumRetriesPlusOne(t *testing.T) {
	calls := 0
	err := withBoundedRetry(context.Background(), 2, func() error {
		calls++
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts (numRetries+1), got %d", calls)
	}
}

func TestWithBoundedRetry_StopsOnFirstSuccess(t *testing.T) {
	calls := 0
	err := withBoundedRetry(context.Background(), 5, func() error {
		calls++
		if calls == 2 {
			return nil
		}
		return errors.New("boom")
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected to stop after 2 calls, got %d", calls)
	}
}

func TestRetryUnconditionally_NeverGivesUpOnConflict(t *testing.T) {
	calls := 0
	err := retryUnconditionally(context.Background(), time.Millisecond, IsConflict, func() error {
		calls++
		if calls < 5 {
			return &ConflictError{UUID: "svc"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
}

func TestRetryUnconditionally_StopsOnNonRetryableError(t *testing.T) {
	wantErr := errors.New("fatal")
	calls := 0
	err := retryUnconditionally(context.Background(), time.Millisecond, IsConflict, func() error {
		calls++
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected the fatal error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestRetryUnconditionally_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryUnconditionally(ctx, time.Second, IsConflict, func() error {
		calls++
		return &ConflictError{}
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly 1 call before observing cancellation, got %d", calls)
	}
}
