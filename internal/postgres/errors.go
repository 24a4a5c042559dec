package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"github.com/lib/pq"
	ierr "github.com/numera/numera/internal/errors"
)

// Postgres error codes the engine cares about. Everything else is a plain
// database error.
const (
	pqLockNotAvailable     = "55P03"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
	pqQueryCanceled        = "57014"
	pqAdminShutdown        = "57P01"
	pqCrashShutdown        = "57P02"
	pqCannotConnectNow     = "57P03"
)

// ClassifyError maps a driver error onto the engine's error taxonomy so the
// layers above never inspect pq internals. Lock waits, serialization
// failures and deadlocks are contention (retryable); unique violations are
// constraint violations (never retried); connection-class failures are store
// unavailability.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already classified
	if ierr.IsClassified(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ierr.WithError(err).
			WithHint("operation deadline exceeded").
			Mark(ierr.ErrTimeout)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable, pqSerializationFailure, pqDeadlockDetected:
			return ierr.WithError(err).
				WithHint("another request is allocating in the same series, try again").
				WithReportableDetails(map[string]any{"pq_code": string(pqErr.Code)}).
				Mark(ierr.ErrSequenceContention)
		case pqUniqueViolation:
			return ierr.WithError(err).
				WithHint("duplicate row").
				WithReportableDetails(map[string]any{
					"pq_code":    string(pqErr.Code),
					"constraint": pqErr.Constraint,
				}).
				Mark(ierr.ErrConstraintViolation)
		case pqQueryCanceled:
			return ierr.WithError(err).
				WithHint("query canceled").
				Mark(ierr.ErrTimeout)
		case pqAdminShutdown, pqCrashShutdown, pqCannotConnectNow:
			return ierr.WithError(err).
				WithHint("database is not accepting requests").
				Mark(ierr.ErrStoreUnavailable)
		}
		// Connection exception class
		if len(pqErr.Code) >= 2 && pqErr.Code[:2] == "08" {
			return ierr.WithError(err).
				WithHint("database connection failed").
				Mark(ierr.ErrStoreUnavailable)
		}
		return ierr.WithError(err).
			WithHint("database error").
			Mark(ierr.ErrDatabase)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, driver.ErrBadConn) {
		return ierr.WithError(err).
			WithHint("database unreachable").
			Mark(ierr.ErrStoreUnavailable)
	}

	return ierr.WithError(err).
		WithHint("database error").
		Mark(ierr.ErrDatabase)
}

// IsUniqueViolation reports whether the raw driver error is a unique
// constraint violation, used by the allocator's insert-race guard before
// classification.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
