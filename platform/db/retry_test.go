package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadsignal_backend/platform/logger"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), logger.Discard(), "ping", 5, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryReturnsLastError(t *testing.T) {
	errDown := errors.New("connection refused")
	calls := 0
	err := Retry(context.Background(), logger.Discard(), "ping", 3, time.Millisecond, func(context.Context) error {
		calls++
		return errDown
	})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryWithZeroAttemptsRunsOnce(t *testing.T) {
	errDown := errors.New("connection refused")
	calls := 0
	err := Retry(context.Background(), logger.Discard(), "ping", 0, time.Millisecond, func(context.Context) error {
		calls++
		return errDown
	})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, logger.Discard(), "ping", 5, time.Millisecond, func(context.Context) error {
		return errors.New("unreachable")
	})
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
