package util

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "ECONNREFUSED", err: syscall.ECONNREFUSED, expected: true},
		{name: "ETIMEDOUT", err: syscall.ETIMEDOUT, expected: true},
		{name: "ECONNRESET wrapped", err: fmt.Errorf("dial: %w", syscall.ECONNRESET), expected: true},
		{name: "ENOENT (not retryable)", err: syscall.ENOENT, expected: false},
		{name: "postgres starting up", err: errors.New("FATAL: the database system is starting up"), expected: true},
		{name: "sqlite locked", err: errors.New("database is locked (5) (SQLITE_BUSY)"), expected: true},
		{name: "canceled", err: context.Canceled, expected: false},
		{name: "unique violation (not retryable)", err: ErrUniqueViolation, expected: false},
		{name: "generic error (not retryable)", err: errors.New("invalid argument"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsRetryableError(tt.err)
			if result != tt.expected {
				t.Errorf("IsRetryableError(%v) = %v, expected %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestRetryWithBackoff_ImmediateSuccess(t *testing.T) {
	attempts := 0
	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 10 * time.Millisecond}

	result, err := RetryWithBackoff(context.Background(), cfg, func(context.Context) (int, error) {
		attempts++
		return 42, nil
	}, "connect")

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result != 42 {
		t.Errorf("Expected result 42, got: %d", result)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetryWithBackoff_TransientThenSuccess(t *testing.T) {
	attempts := 0
	cfg := &RetryConfig{MaxAttempts: 4, InitialWait: time.Millisecond, MaxWait: 2 * time.Millisecond}

	result, err := RetryWithBackoff(context.Background(), cfg, func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", syscall.ECONNREFUSED
		}
		return "ok", nil
	}, "connect")

	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}
	if result != "ok" || attempts != 3 {
		t.Errorf("Expected ok after 3 attempts, got %q after %d", result, attempts)
	}
}

func TestRetryWithBackoff_NonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	cfg := &RetryConfig{MaxAttempts: 5, InitialWait: time.Millisecond}

	_, err := RetryWithBackoff(context.Background(), cfg, func(context.Context) (int, error) {
		attempts++
		return 0, errors.New("password authentication failed")
	}, "connect")

	if err == nil {
		t.Fatal("Expected error")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	attempts := 0
	cfg := &RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}

	_, err := RetryWithBackoff(context.Background(), cfg, func(context.Context) (int, error) {
		attempts++
		return 0, syscall.ETIMEDOUT
	}, "connect")

	if !errors.Is(err, syscall.ETIMEDOUT) {
		t.Fatalf("Expected wrapped ETIMEDOUT, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{MaxAttempts: 10, InitialWait: time.Hour}

	attempts := 0
	_, err := RetryWithBackoff(ctx, cfg, func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, syscall.ECONNREFUSED
	}, "connect")

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}
