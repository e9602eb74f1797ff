package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	cause := errors.New("network timeout")
	qe := New(CodeTimeout, "search timed out", cause)

	if qe.Code != CodeTimeout {
		t.Errorf("expected CodeTimeout, got %v", qe.Code)
	}
	if qe.Message != "search timed out" {
		t.Errorf("expected message 'search timed out', got %q", qe.Message)
	}
	if qe.Err != cause {
		t.Errorf("expected cause to be preserved")
	}
	if !errors.Is(qe, cause) {
		t.Errorf("expected errors.Is to work with wrapped error")
	}
}

func TestWithContext(t *testing.T) {
	qe := New(CodeSearchError, "search failed", nil)
	qe.WithContext("query", "solar panel efficiency").
		WithContext("max_results", 10)

	if qe.Context["query"] != "solar panel efficiency" {
		t.Errorf("expected context query to be set")
	}
	if qe.Context["max_results"] != 10 {
		t.Errorf("expected context max_results to be set")
	}
}

func TestWithRecoverable(t *testing.T) {
	qe := New(CodeLLMError, "rate limited upstream", nil)
	if qe.Recoverable {
		t.Errorf("expected recoverable to be false by default")
	}

	qe.WithRecoverable(true)
	if !qe.Recoverable {
		t.Errorf("expected recoverable to be true after WithRecoverable")
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name     string
		qe       *QuaeroError
		expected string
	}{
		{
			name:     "with cause",
			qe:       New(CodeTimeout, "operation timed out", errors.New("deadline exceeded")),
			expected: "[TIMEOUT] operation timed out: deadline exceeded",
		},
		{
			name:     "without cause",
			qe:       New(CodeNotFound, "task not found", nil),
			expected: "[NOT_FOUND] task not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.qe.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{CodeNotFound, 404},
		{CodeInvalidInput, 400},
		{CodeTimeout, 408},
		{CodeRateLimit, 429},
		{CodeLLMError, 500},
		{CodeInternal, 500},
	}

	for _, tt := range tests {
		qe := New(tt.code, "msg", nil)
		if qe.StatusCode != tt.status {
			t.Errorf("code %s: expected status %d, got %d", tt.code, tt.status, qe.StatusCode)
		}
	}
}

func TestAsQuaeroError(t *testing.T) {
	qe := New(CodeMemoryError, "upsert failed", nil)
	if got := AsQuaeroError(qe); got != qe {
		t.Errorf("expected identity for QuaeroError")
	}

	plain := errors.New("boom")
	wrapped := AsQuaeroError(plain)
	if wrapped.Code != CodeInternal {
		t.Errorf("expected CodeInternal, got %v", wrapped.Code)
	}
	if wrapped.Err != plain {
		t.Errorf("expected cause to be preserved")
	}

	chained := fmt.Errorf("stage failed: %w", qe)
	if got := AsQuaeroError(chained); got != qe {
		t.Errorf("expected unwrap through the chain, got %v", got)
	}

	if AsQuaeroError(nil) != nil {
		t.Errorf("expected nil for nil error")
	}
}

func TestMarshalJSON(t *testing.T) {
	qe := New(CodeLLMError, "completion failed", errors.New("status 502")).
		WithContext("model", "gpt-4o-mini")

	data, err := json.Marshal(qe)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload["code"] != string(CodeLLMError) {
		t.Errorf("expected code %s, got %v", CodeLLMError, payload["code"])
	}
	if payload["error"] != "status 502" {
		t.Errorf("expected wrapped error in payload, got %v", payload["error"])
	}
}
