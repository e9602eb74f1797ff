package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	qerrors "github.com/quaero-ai/quaero/pkg/errors"
)

func TestRetrySuccess(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetryMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithMaxAttempts(2).WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return errors.New("always fails")
	})

	if err == nil {
		t.Errorf("expected error after max attempts")
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryNonRecoverable(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithIsRecoverable(func(err error) bool {
		return false
	})
	err := config.Do(context.Background(), func() error {
		attempts++
		return errors.New("non-recoverable error")
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetryRespectsQuaeroErrorFlag(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	err := config.Do(context.Background(), func() error {
		attempts++
		return qerrors.New(qerrors.CodeLLMError, "hard failure", nil).WithRecoverable(false)
	})

	if err == nil {
		t.Errorf("expected error")
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt for non-recoverable QuaeroError, got %d", attempts)
	}
}

func TestRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := DefaultRetryConfig().WithInitialDelay(100 * time.Millisecond)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := config.Do(ctx, func() error {
		attempts++
		return errors.New("transient error")
	})

	if err == nil {
		t.Errorf("expected context error")
	}
	if attempts < 1 {
		t.Errorf("expected at least 1 attempt, got %d", attempts)
	}
}

func TestRetryWithResult(t *testing.T) {
	attempts := 0
	config := DefaultRetryConfig().WithInitialDelay(time.Millisecond)
	result, err := config.DoWithResult(context.Background(), func() (interface{}, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return "success", nil
	})

	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %v", result)
	}
}

func TestStaticFallback(t *testing.T) {
	value, err := WithFallback(context.Background(),
		func() (interface{}, error) { return nil, errors.New("primary failed") },
		&StaticFallback{Value: "placeholder"},
	)
	if err != nil {
		t.Fatalf("fallback should absorb error, got: %v", err)
	}
	if value != "placeholder" {
		t.Errorf("expected 'placeholder', got %v", value)
	}
}

func TestFallbackSkippedOnSuccess(t *testing.T) {
	value, err := WithFallback(context.Background(),
		func() (interface{}, error) { return "primary", nil },
		&StaticFallback{Value: "placeholder"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "primary" {
		t.Errorf("expected primary value, got %v", value)
	}
}

func TestChainedFallback(t *testing.T) {
	chain := &ChainedFallback{
		Fallbacks: []FallbackStrategy{
			FallbackFunc(func(ctx context.Context, err error) (interface{}, error) {
				return nil, errors.New("first fallback failed")
			}),
			&StaticFallback{Value: "last resort"},
		},
	}
	value, err := chain.Execute(context.Background(), errors.New("primary failed"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "last resort" {
		t.Errorf("expected 'last resort', got %v", value)
	}
}
