package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgconn"

	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/utils"
)

const (
	cleanupRetryDelay = 3 * time.Second

	// Dead challenges linger briefly so verify can still answer
	// "already used" vs "expired" precisely for late retries.
	deadChallengeRetention = time.Hour
)

// ChallengeCleanupService purges consumed and expired challenges on a
// schedule. Purging is bookkeeping only: an unpurged dead challenge can
// never be consumed again.
type ChallengeCleanupService interface {
	PurgeDead(ctx context.Context) error
}

type challengeCleanupService struct {
	challengeRepo repositories.ChallengeRepository
	retryDelay    time.Duration
}

func NewChallengeCleanupService(challengeRepo repositories.ChallengeRepository) ChallengeCleanupService {
	return &challengeCleanupService{
		challengeRepo: challengeRepo,
		retryDelay:    cleanupRetryDelay,
	}
}

// runWithRetry executes op(ctx) and, if it returns a transient network
// error (EOF, pgconn safe-to-retry, or the common closed-connection
// message), waits a moment then retries once. The wait respects ctx
// cancellation.
func (s *challengeCleanupService) runWithRetry(
	ctx context.Context,
	op func(context.Context) error,
) error {
	if err := op(ctx); err != nil {
		if errors.Is(err, io.EOF) || pgconn.SafeToRetry(err) ||
			strings.Contains(err.Error(), "connection was closed") {
			utils.Logger.WithError(err).Warn("challenge cleanup hit transient DB error; retrying once")
			timer := time.NewTimer(s.retryDelay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
			return op(ctx)
		}
		return err
	}
	return nil
}

func (s *challengeCleanupService) PurgeDead(ctx context.Context) error {
	return s.runWithRetry(ctx, func(ctx context.Context) error {
		n, err := s.challengeRepo.DeleteDead(ctx, deadChallengeRetention)
		if err != nil {
			return err
		}
		if n > 0 {
			utils.Logger.Infof("challenge cleanup removed %d dead challenges", n)
		}
		return nil
	})
}
