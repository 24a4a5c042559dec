package service

import (
	"context"
	"testing"
	"time"

	"github.com/numera/numera/internal/config"
	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/logger"
	"github.com/stretchr/testify/suite"
)

type RetryPolicySuite struct {
	suite.Suite
	logger *logger.Logger
}

func TestRetryPolicy(t *testing.T) {
	suite.Run(t, new(RetryPolicySuite))
}

func (s *RetryPolicySuite) SetupSuite() {
	var err error
	s.logger, err = logger.NewLogger(config.GetDefaultConfig())
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

func (s *RetryPolicySuite) policy(maxAttempts int, overallTimeout time.Duration) *RetryPolicy {
	cfg := config.GetDefaultConfig()
	cfg.Numbering.MaxAttempts = maxAttempts
	cfg.Numbering.InitialBackoff = time.Millisecond
	cfg.Numbering.MaxBackoff = 5 * time.Millisecond
	cfg.Numbering.OverallTimeout = overallTimeout
	return NewRetryPolicy(cfg, s.logger)
}

func contention() error {
	return ierr.NewError("counter row is locked").
		WithHint("another transaction holds the counter").
		Mark(ierr.ErrSequenceContention)
}

func (s *RetryPolicySuite) TestSucceedsFirstAttempt() {
	attempts := 0
	err := s.policy(3, time.Second).Execute(context.Background(), "op", func(ctx context.Context) error {
		attempts++
		return nil
	})
	s.NoError(err)
	s.Equal(1, attempts)
}

func (s *RetryPolicySuite) TestRetriesContentionUntilSuccess() {
	attempts := 0
	err := s.policy(3, time.Second).Execute(context.Background(), "op", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return contention()
		}
		return nil
	})
	s.NoError(err)
	s.Equal(3, attempts)
}

func (s *RetryPolicySuite) TestExhaustsAttempts() {
	attempts := 0
	err := s.policy(3, time.Second).Execute(context.Background(), "op", func(ctx context.Context) error {
		attempts++
		return contention()
	})
	s.Error(err)
	s.True(ierr.IsSequenceContention(err))
	s.Equal(3, attempts)
}

func (s *RetryPolicySuite) TestDoesNotRetryPermanentErrors() {
	testCases := []struct {
		name string
		err  error
	}{
		{
			name: "validation",
			err: ierr.NewError("bad payload").
				WithHint("bad payload").
				Mark(ierr.ErrValidation),
		},
		{
			name: "constraint_violation",
			err: ierr.NewError("duplicate number").
				WithHint("duplicate number").
				Mark(ierr.ErrConstraintViolation),
		},
		{
			name: "store_unavailable",
			err: ierr.NewError("connection refused").
				WithHint("store unreachable").
				Mark(ierr.ErrStoreUnavailable),
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			attempts := 0
			err := s.policy(3, time.Second).Execute(context.Background(), "op", func(ctx context.Context) error {
				attempts++
				return tc.err
			})
			s.Error(err)
			s.Equal(1, attempts)
		})
	}
}

// When the overall deadline expires while still contended, the caller sees a
// timeout, not the contention that caused the retries.
func (s *RetryPolicySuite) TestOverallDeadlineSurfacesAsTimeout() {
	err := s.policy(1000, 30*time.Millisecond).Execute(context.Background(), "op", func(ctx context.Context) error {
		<-ctx.Done()
		return contention()
	})
	s.Error(err)
	s.True(ierr.IsTimeout(err))
}

// The context handed to the operation carries the overall deadline so a hung
// attempt cannot outlive the policy.
func (s *RetryPolicySuite) TestOperationContextCarriesDeadline() {
	var deadline time.Time
	var ok bool
	err := s.policy(3, time.Second).Execute(context.Background(), "op", func(ctx context.Context) error {
		deadline, ok = ctx.Deadline()
		return nil
	})
	s.NoError(err)
	s.True(ok)
	s.False(deadline.IsZero())
}
