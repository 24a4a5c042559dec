package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/stretchr/testify/assert"
)

func pqErr(code string) error {
	return &pq.Error{Code: pq.ErrorCode(code), Message: "test"}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "lock not available is contention",
			err:   pqErr("55P03"),
			check: ierr.IsSequenceContention,
		},
		{
			name:  "serialization failure is contention",
			err:   pqErr("40001"),
			check: ierr.IsSequenceContention,
		},
		{
			name:  "deadlock is contention",
			err:   pqErr("40P01"),
			check: ierr.IsSequenceContention,
		},
		{
			name:  "unique violation is constraint violation",
			err:   pqErr("23505"),
			check: ierr.IsConstraintViolation,
		},
		{
			name:  "query canceled is timeout",
			err:   pqErr("57014"),
			check: ierr.IsTimeout,
		},
		{
			name:  "admin shutdown is store unavailable",
			err:   pqErr("57P01"),
			check: ierr.IsStoreUnavailable,
		},
		{
			name:  "connection exception class is store unavailable",
			err:   pqErr("08006"),
			check: ierr.IsStoreUnavailable,
		},
		{
			name:  "context deadline is timeout",
			err:   fmt.Errorf("query: %w", context.DeadlineExceeded),
			check: ierr.IsTimeout,
		},
		{
			name:  "unknown pq code is database error",
			err:   pqErr("42703"),
			check: func(err error) bool { return errors.Is(err, ierr.ErrDatabase) },
		},
		{
			name:  "plain error is database error",
			err:   errors.New("boom"),
			check: func(err error) bool { return errors.Is(err, ierr.ErrDatabase) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := ClassifyError(tt.err)
			assert.True(t, tt.check(classified), "classified = %v", classified)
		})
	}
}

func TestClassifyError_Passthrough(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))

	already := ierr.NewError("not found").
		WithHint("not found").
		Mark(ierr.ErrNotFound)
	assert.Equal(t, already, ClassifyError(already))
	assert.True(t, ierr.IsNotFound(ClassifyError(already)))
}

func TestClassifyError_RetryableOnlyContention(t *testing.T) {
	assert.True(t, ierr.IsRetryable(ClassifyError(pqErr("55P03"))))
	assert.False(t, ierr.IsRetryable(ClassifyError(pqErr("23505"))))
	assert.False(t, ierr.IsRetryable(ClassifyError(pqErr("08006"))))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(pqErr("23505")))
	assert.False(t, IsUniqueViolation(pqErr("55P03")))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
