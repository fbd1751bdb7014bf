package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"

	"github.com/ekaya-inc/ekaya-ask/pkg/retry"
)

func TestError_Error_IncludesContext(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Model:      "gpt-4o-mini",
		Endpoint:   "https://api.openai.com/v1?key=abc",
	}

	result := err.Error()
	for _, want := range []string{"endpoint", "HTTP 503", "model=gpt-4o-mini", "endpoint=api.openai.com", "server error"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in error message, got: %s", want, result)
		}
	}
	// Endpoint is reduced to its host
	if strings.Contains(result, "/v1") || strings.Contains(result, "key=abc") {
		t.Errorf("endpoint should be redacted to host only, got: %s", result)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewError(ErrorTypeEndpoint, "connection failed", true, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.HasSuffix(err.Error(), ": dial tcp: connection refused") {
		t.Errorf("expected cause appended to message, got: %s", err.Error())
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   ErrorType
		retryable  bool
		statusCode int
	}{
		{
			name:       "openai api error 401",
			err:        &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"},
			wantType:   ErrorTypeAuth,
			statusCode: 401,
		},
		{
			name:       "openai api error 429",
			err:        &openai.APIError{HTTPStatusCode: 429, Message: "slow down"},
			wantType:   ErrorTypeRateLimit,
			retryable:  true,
			statusCode: 429,
		},
		{
			name:       "openai request error 502",
			err:        &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")},
			wantType:   ErrorTypeEndpoint,
			retryable:  true,
			statusCode: 502,
		},
		{
			name:       "anthropic overloaded by message",
			err:        errors.New("anthropic api error type: overloaded_error, message: Overloaded"),
			wantType:   ErrorTypeEndpoint,
			retryable:  true,
			statusCode: 0,
		},
		{
			name:       "status 529 in message",
			err:        errors.New("request failed with status code 529"),
			wantType:   ErrorTypeEndpoint,
			retryable:  true,
			statusCode: 529,
		},
		{
			name:     "model not found",
			err:      errors.New("The model `gpt-9` does not exist"),
			wantType: ErrorTypeModel,
		},
		{
			name:       "endpoint 404",
			err:        errors.New("error, status code: 404, message: not found"),
			wantType:   ErrorTypeEndpoint,
			statusCode: 404,
		},
		{
			name:      "connection refused",
			err:       errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"),
			wantType:  ErrorTypeEndpoint,
			retryable: true,
		},
		{
			name:     "caller canceled",
			err:      fmt.Errorf("post: %w", context.Canceled),
			wantType: ErrorTypeEndpoint,
		},
		{
			name:     "unknown",
			err:      errors.New("something odd"),
			wantType: ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)

			if got.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", got.Type, tt.wantType)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.retryable)
			}
			if got.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.statusCode)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyError_KeepsExistingError(t *testing.T) {
	original := NewError(ErrorTypeAuth, "authentication failed", false, nil)
	wrapped := fmt.Errorf("generate: %w", original)

	if got := ClassifyError(wrapped); got != original {
		t.Errorf("expected the existing *Error to be returned, got %v", got)
	}
	if ClassifyError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestError_DrivesRetryPackage(t *testing.T) {
	// The retry package sees llm.Error through its RetryableError interface,
	// even when the message contains a retryable-looking status code.
	permanent := NewErrorWithContext(ErrorTypeAuth, "authentication failed", false, nil, "m", "", 503)
	if retry.IsRetryable(fmt.Errorf("wrapped: %w", permanent)) {
		t.Error("expected permanent llm.Error not to be retried")
	}

	transient := NewError(ErrorTypeRateLimit, "rate limited", true, nil)
	if !retry.IsRetryable(transient) {
		t.Error("expected transient llm.Error to be retried")
	}
}

func TestIsRetryableAndGetErrorType(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewError(ErrorTypeRateLimit, "rate limited", true, nil))

	if !IsRetryable(err) {
		t.Error("expected IsRetryable to unwrap")
	}
	if GetErrorType(err) != ErrorTypeRateLimit {
		t.Errorf("GetErrorType = %q", GetErrorType(err))
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable here")
	}
	if GetErrorType(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("plain errors have unknown type")
	}
}
