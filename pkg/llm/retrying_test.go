package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFastRetrying(next Completer, maxRetries int, breaker *CircuitBreaker) *RetryingCompleter {
	r := NewRetryingCompleter(next, maxRetries, breaker, zap.NewNop())
	r.cfg.InitialDelay = time.Millisecond
	r.cfg.MaxDelay = 2 * time.Millisecond
	r.cfg.JitterFactor = 0
	return r
}

func TestRetryingCompleter_RetriesTransientErrors(t *testing.T) {
	mock := NewMockCompleter("")
	mock.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		if mock.Calls() < 3 {
			return "", NewError(ErrorTypeRateLimit, "rate limited", true, nil)
		}
		return "SELECT 1", nil
	}

	r := newFastRetrying(mock, 3, nil)
	text, err := r.Complete(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)
	assert.Equal(t, 3, mock.Calls())
}

func TestRetryingCompleter_PermanentErrorNotRetried(t *testing.T) {
	mock := NewMockCompleter("")
	mock.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", NewError(ErrorTypeAuth, "authentication failed", false, nil)
	}

	r := newFastRetrying(mock, 3, nil)
	_, err := r.Complete(context.Background(), "sys", "user")

	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.Equal(t, 1, mock.Calls())
}

func TestRetryingCompleter_GivesUpAfterMaxRetries(t *testing.T) {
	mock := NewMockCompleter("")
	mock.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", NewError(ErrorTypeEndpoint, "server error", true, nil)
	}

	r := newFastRetrying(mock, 2, nil)
	r.cfg.MaxSameErrorType = 0
	_, err := r.Complete(context.Background(), "sys", "user")

	require.Error(t, err)
	assert.Equal(t, 3, mock.Calls(), "one attempt plus two retries")
}

func TestRetryingCompleter_AttemptTimeoutIsRetried(t *testing.T) {
	mock := NewMockCompleter("")
	mock.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		if mock.Calls() == 1 {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return "ok", nil
	}

	r := newFastRetrying(mock, 1, nil).WithAttemptTimeout(10 * time.Millisecond)
	text, err := r.Complete(context.Background(), "sys", "user")

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 2, mock.Calls())
}

func TestRetryingCompleter_CallerCancelStopsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := NewMockCompleter("")
	mock.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute})
	r := newFastRetrying(mock, 3, breaker)
	_, err := r.Complete(ctx, "sys", "user")

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, mock.Calls())
	assert.Equal(t, CircuitClosed, breaker.State(), "caller cancellation is not a provider failure")
}

func TestRetryingCompleter_OpenCircuitSkipsProvider(t *testing.T) {
	mock := NewMockCompleter("")
	mock.CompleteFunc = func(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
		return "", NewError(ErrorTypeAuth, "authentication failed", false, nil)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute})
	r := newFastRetrying(mock, 0, breaker)

	_, err := r.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	require.Equal(t, CircuitOpen, breaker.State())

	_, err = r.Complete(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, 1, mock.Calls(), "provider must not be called while the circuit is open")
}

func TestRetryingCompleter_GetModel(t *testing.T) {
	mock := NewMockCompleter("")
	mock.Model = "claude-test"

	r := newFastRetrying(mock, 1, nil)
	assert.Equal(t, "claude-test", r.GetModel())
}
