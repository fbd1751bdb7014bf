package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/retry"
)

// RetryingCompleter retries transient completion failures with exponential
// backoff and stops calling a provider that keeps failing. Permanent errors
// (auth, unknown model, bad request) are returned on the first attempt.
type RetryingCompleter struct {
	next    Completer
	cfg     retry.Config
	breaker *CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewRetryingCompleter wraps next. A nil breaker disables the circuit check.
func NewRetryingCompleter(next Completer, maxRetries int, breaker *CircuitBreaker, logger *zap.Logger) *RetryingCompleter {
	return &RetryingCompleter{
		next:    next,
		cfg:     *retry.CompletionConfig(maxRetries),
		breaker: breaker,
		logger:  logger.Named("llm.retry"),
	}
}

// WithAttemptTimeout bounds each individual attempt. Zero means no bound
// beyond the caller's context.
func (r *RetryingCompleter) WithAttemptTimeout(d time.Duration) *RetryingCompleter {
	r.timeout = d
	return r
}

// Complete calls the wrapped completer, retrying transient errors.
func (r *RetryingCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if r.breaker != nil {
		if err := r.breaker.Allow(); err != nil {
			r.logger.Warn("Completion skipped", zap.String("reason", err.Error()))
			return "", NewError(ErrorTypeEndpoint, "provider unavailable", false, err)
		}
	}

	cfg := r.cfg
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		r.logger.Warn("Retrying completion",
			zap.String("model", r.next.GetModel()),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.String("error", logging.SanitizeError(err)))
	}

	text, err := retry.DoIfRetryableWithResult(ctx, &cfg, func() (string, error) {
		attemptCtx := ctx
		if r.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}
		text, err := r.next.Complete(attemptCtx, systemPrompt, userPrompt)
		if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			// The cause is dropped so the retry loop does not read this as the
			// caller's own deadline.
			return "", NewError(ErrorTypeEndpoint, fmt.Sprintf("attempt timed out after %s", r.timeout), true, nil)
		}
		return text, err
	})

	// Caller cancellation says nothing about the provider.
	if r.breaker != nil && (err == nil || ctx.Err() == nil) {
		r.breaker.Record(err)
	}
	return text, err
}

// GetModel returns the wrapped completer's model.
func (r *RetryingCompleter) GetModel() string {
	return r.next.GetModel()
}
