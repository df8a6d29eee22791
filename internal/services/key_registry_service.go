package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/realtime"
	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/utils"
)

// KeyRegistryService owns the lifecycle of device public keys:
// pending → approved | revoked, with revoked terminal.
type KeyRegistryService interface {
	// Register stores a new pending key for the pair, revoking any
	// currently approved key in the same transaction. Fails with
	// utils.ErrAlreadyPending while an unresolved registration exists
	// and utils.ErrSignatureInvalid when the key material is unusable.
	Register(ctx context.Context, userID uuid.UUID, deviceID, publicKeyPEM string) (*models.DeviceKey, error)
	// Decide resolves a pending key. approve=false rejects it into the
	// terminal revoked state.
	Decide(ctx context.Context, keyID, adminID uuid.UUID, approve bool) (*models.DeviceKey, error)
	// Revoke retires an approved key and force-expires the pair's
	// outstanding challenges.
	Revoke(ctx context.Context, keyID, adminID uuid.UUID) (*models.DeviceKey, error)
	StatusFor(ctx context.Context, userID uuid.UUID, deviceID string) (models.KeyState, error)
}

type keyRegistryService struct {
	keyRepo       repositories.DeviceKeyRepository
	challengeRepo repositories.ChallengeRepository
	notifier      realtime.Notifier
}

func NewKeyRegistryService(
	keyRepo repositories.DeviceKeyRepository,
	challengeRepo repositories.ChallengeRepository,
	notifier realtime.Notifier,
) KeyRegistryService {
	return &keyRegistryService{
		keyRepo:       keyRepo,
		challengeRepo: challengeRepo,
		notifier:      notifier,
	}
}

func (s *keyRegistryService) Register(ctx context.Context, userID uuid.UUID, deviceID, publicKeyPEM string) (*models.DeviceKey, error) {
	if _, err := utils.ParseDevicePublicKey(publicKeyPEM); err != nil {
		utils.Logger.WithError(err).Warnf("register: rejected key material for user %s device %s", userID, deviceID)
		return nil, utils.ErrSignatureInvalid
	}

	k := &models.DeviceKey{
		ID:           uuid.New(),
		UserID:       userID,
		DeviceID:     deviceID,
		PublicKeyPEM: publicKeyPEM,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.keyRepo.Register(ctx, k); err != nil {
		return nil, err
	}
	utils.Logger.Infof("device key %s registered (user=%s device=%s)", k.ID, userID, deviceID)

	s.notifier.Publish(ctx, realtime.Event{
		Topic:    realtime.TopicKeyPending,
		EntityID: k.ID.String(),
		UserID:   userID.String(),
		DeviceID: deviceID,
		State:    string(models.KeyStatePending),
		At:       k.RegisteredAt,
	})
	return k, nil
}

func (s *keyRegistryService) Decide(ctx context.Context, keyID, adminID uuid.UUID, approve bool) (*models.DeviceKey, error) {
	k, err := s.keyRepo.Decide(ctx, keyID, adminID, approve)
	if err != nil {
		return nil, err
	}

	topic := realtime.TopicKeyRevoked
	if approve {
		topic = realtime.TopicKeyApproved
	}
	utils.Logger.Infof("device key %s decided by %s: %s", k.ID, adminID, k.State)
	s.notifier.Publish(ctx, realtime.Event{
		Topic:    topic,
		EntityID: k.ID.String(),
		UserID:   k.UserID.String(),
		DeviceID: k.DeviceID,
		State:    string(k.State),
		At:       derefOrNow(k.DecidedAt),
	})
	return k, nil
}

func (s *keyRegistryService) Revoke(ctx context.Context, keyID, adminID uuid.UUID) (*models.DeviceKey, error) {
	k, err := s.keyRepo.Revoke(ctx, keyID, adminID)
	if err != nil {
		return nil, err
	}

	// Outstanding challenges for a revoked key die with it. Verify
	// rechecks key state anyway, so a failure here costs liveness of
	// the cleanup, never correctness.
	if n, err := s.challengeRepo.ExpireUnconsumedForPair(ctx, k.UserID, k.DeviceID); err != nil {
		utils.Logger.WithError(err).Warnf("revoke: failed to expire outstanding challenges for key %s", k.ID)
	} else if n > 0 {
		utils.Logger.Infof("revoke: expired %d outstanding challenges for key %s", n, k.ID)
	}

	utils.Logger.Infof("device key %s revoked by %s", k.ID, adminID)
	s.notifier.Publish(ctx, realtime.Event{
		Topic:    realtime.TopicKeyRevoked,
		EntityID: k.ID.String(),
		UserID:   k.UserID.String(),
		DeviceID: k.DeviceID,
		State:    string(models.KeyStateRevoked),
		At:       derefOrNow(k.DecidedAt),
	})
	return k, nil
}

func (s *keyRegistryService) StatusFor(ctx context.Context, userID uuid.UUID, deviceID string) (models.KeyState, error) {
	return s.keyRepo.StatusFor(ctx, userID, deviceID)
}

func derefOrNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now().UTC()
}
