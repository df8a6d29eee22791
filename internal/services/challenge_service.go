package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/utils"
)

// DefaultChallengeTTL bounds the replay window while leaving room for a
// biometric prompt on the device.
const DefaultChallengeTTL = 45 * time.Second

// ChallengeService mints single-use, time-bounded challenges for pairs
// whose key is approved. Issuing never invalidates earlier unexpired
// challenges; only consumption is exclusive.
type ChallengeService interface {
	Issue(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Challenge, error)
}

type challengeService struct {
	keyRepo       repositories.DeviceKeyRepository
	challengeRepo repositories.ChallengeRepository
	ttl           time.Duration
}

func NewChallengeService(
	keyRepo repositories.DeviceKeyRepository,
	challengeRepo repositories.ChallengeRepository,
	ttl time.Duration,
) ChallengeService {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &challengeService{keyRepo: keyRepo, challengeRepo: challengeRepo, ttl: ttl}
}

func (s *challengeService) Issue(ctx context.Context, userID uuid.UUID, deviceID string) (*models.Challenge, error) {
	state, err := s.keyRepo.StatusFor(ctx, userID, deviceID)
	if err != nil {
		return nil, err
	}
	if state != models.KeyStateApproved {
		return nil, utils.ErrKeyNotApproved
	}

	nonce, err := utils.RandomNonce()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	c := &models.Challenge{
		ID:        uuid.New(),
		UserID:    userID,
		DeviceID:  deviceID,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.challengeRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	utils.Logger.Debugf("challenge %s issued (user=%s device=%s ttl=%s)", c.ID, userID, deviceID, s.ttl)
	return c, nil
}
