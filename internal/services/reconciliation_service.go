package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"triphub/internal/repositories"
)

// reconciliationService sweeps every active user and forces their snapshot
// back to ledger truth. One user per transaction, so a single bad row cannot
// poison the batch.
type reconciliationService struct {
	users       repositories.UserRepository
	progression ProgressionService
	retries     int
	logger      *zap.Logger
}

// NewReconciliationService creates the nightly reconciliation driver.
func NewReconciliationService(
	users repositories.UserRepository,
	progression ProgressionService,
	retries int,
	logger *zap.Logger,
) ReconciliationService {
	if retries < 0 {
		retries = 0
	}
	return &reconciliationService{
		users:       users,
		progression: progression,
		retries:     retries,
		logger:      logger,
	}
}

// ReconcileAll recalculates every active user. Per-user failures are retried
// a bounded number of times, then collected into the report; the sweep keeps
// going.
func (s *reconciliationService) ReconcileAll(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()

	userIDs, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return nil, NewInternalError("failed to list users for reconciliation")
	}

	report := &ReconcileReport{Total: len(userIDs)}
	var collected *multierror.Error

	for _, userID := range userIDs {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			report.Errors = collected.ErrorOrNil()
			return report, err
		}

		if err := s.reconcileUser(ctx, userID); err != nil {
			report.Failed++
			collected = multierror.Append(collected, fmt.Errorf("user %d: %w", userID, err))
			s.logger.Error("Reconciliation failed for user",
				zap.Error(err),
				zap.Int64("user_id", userID),
			)
			continue
		}
		report.Succeeded++
	}

	report.Duration = time.Since(start)
	report.Errors = collected.ErrorOrNil()

	s.logger.Info("Reconciliation sweep finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// reconcileUser runs one recalculation with retries on retryable failures.
// A vanished user is not an error; the sweep simply skips them.
func (s *reconciliationService) reconcileUser(ctx context.Context, userID int64) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.retries)),
		ctx,
	)

	operation := func() error {
		err := s.progression.RecalculateUserStats(ctx, userID)
		if err == nil {
			return nil
		}
		if IsNotFoundError(err) {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		s.logger.Warn("Retrying user reconciliation",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Duration("backoff", wait),
		)
	})
}
