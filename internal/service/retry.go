package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/numera/numera/internal/config"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
)

// RetryPolicy re-runs an operation on retryable classifications only
// (sequence contention). Validation failures, constraint violations and
// store outages propagate immediately without consuming an attempt. An
// overall deadline bounds total latency across attempts; exceeding it
// surfaces as ErrTimeout, distinct from the contention that caused the
// retries.
type RetryPolicy struct {
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	overallTimeout time.Duration
	logger         *logger.Logger
}

func NewRetryPolicy(cfg *config.Configuration, logger *logger.Logger) *RetryPolicy {
	return &RetryPolicy{
		maxAttempts:    cfg.Numbering.MaxAttempts,
		initialBackoff: cfg.Numbering.InitialBackoff,
		maxBackoff:     cfg.Numbering.MaxBackoff,
		overallTimeout: cfg.Numbering.OverallTimeout,
		logger:         logger,
	}
}

// Execute runs fn up to maxAttempts times with exponential backoff between
// attempts. The context handed to fn carries the overall deadline, so a
// hung attempt is also bounded.
func (p *RetryPolicy) Execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, p.overallTimeout)
	defer cancel()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = p.initialBackoff
	expBackoff.MaxInterval = p.maxBackoff
	expBackoff.MaxElapsedTime = p.overallTimeout

	var policy backoff.BackOff = backoff.WithMaxRetries(expBackoff, uint64(p.maxAttempts-1))
	policy = backoff.WithContext(policy, ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ierr.IsRetryable(err) {
			p.logger.Warnw("retryable failure, backing off",
				"operation", op,
				"attempt", attempt,
				"max_attempts", p.maxAttempts,
				"error", err,
			)
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if err == nil {
		return nil
	}

	// A deadline hit while contended is reported as a timeout, so callers
	// can tell "gave up" from "still contended".
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !ierr.IsTimeout(err) {
		return ierr.WithError(err).
			WithHint("the system is busy, please try again").
			WithReportableDetails(map[string]any{
				"operation": op,
				"attempts":  attempt,
				"timeout":   p.overallTimeout.String(),
			}).
			Mark(ierr.ErrTimeout)
	}

	return err
}
