package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/utils"
)

func approvedPair(t *testing.T, keyRepo *memKeyRepo, pemStr string) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	k := &models.DeviceKey{
		ID:           uuid.New(),
		UserID:       userID,
		DeviceID:     "device-1",
		PublicKeyPEM: pemStr,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, keyRepo.Register(context.Background(), k))
	_, err := keyRepo.Decide(context.Background(), k.ID, uuid.New(), true)
	require.NoError(t, err)
	return userID, "device-1"
}

func TestIssueRequiresApprovedKey(t *testing.T) {
	keyRepo := newMemKeyRepo()
	challengeRepo := newMemChallengeRepo()
	svc := NewChallengeService(keyRepo, challengeRepo, 0)

	_, err := svc.Issue(context.Background(), uuid.New(), "device-1")
	require.ErrorIs(t, err, utils.ErrKeyNotApproved)
}

func TestIssuePendingKeyFails(t *testing.T) {
	keyRepo := newMemKeyRepo()
	challengeRepo := newMemChallengeRepo()
	svc := NewChallengeService(keyRepo, challengeRepo, 0)

	_, pemStr := newDeviceKeyPair(t)
	userID := uuid.New()
	k := &models.DeviceKey{
		ID:           uuid.New(),
		UserID:       userID,
		DeviceID:     "device-1",
		PublicKeyPEM: pemStr,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, keyRepo.Register(context.Background(), k))

	_, err := svc.Issue(context.Background(), userID, "device-1")
	require.ErrorIs(t, err, utils.ErrKeyNotApproved)
}

func TestIssueAfterRevocationFails(t *testing.T) {
	keyRepo := newMemKeyRepo()
	challengeRepo := newMemChallengeRepo()
	svc := NewChallengeService(keyRepo, challengeRepo, 0)

	_, pemStr := newDeviceKeyPair(t)
	userID := uuid.New()
	k := &models.DeviceKey{
		ID:           uuid.New(),
		UserID:       userID,
		DeviceID:     "device-1",
		PublicKeyPEM: pemStr,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, keyRepo.Register(context.Background(), k))
	_, err := keyRepo.Decide(context.Background(), k.ID, uuid.New(), true)
	require.NoError(t, err)
	_, err = keyRepo.Revoke(context.Background(), k.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Issue(context.Background(), userID, "device-1")
	require.ErrorIs(t, err, utils.ErrKeyNotApproved)
}

func TestIssueMintsBoundedChallenge(t *testing.T) {
	keyRepo := newMemKeyRepo()
	challengeRepo := newMemChallengeRepo()
	ttl := 30 * time.Second
	svc := NewChallengeService(keyRepo, challengeRepo, ttl)

	_, pemStr := newDeviceKeyPair(t)
	userID, deviceID := approvedPair(t, keyRepo, pemStr)

	before := time.Now().UTC()
	c, err := svc.Issue(context.Background(), userID, deviceID)
	require.NoError(t, err)

	require.Equal(t, userID, c.UserID)
	require.Equal(t, deviceID, c.DeviceID)
	require.Len(t, c.Nonce, utils.NonceBytes)
	require.Nil(t, c.ConsumedAt)
	require.True(t, c.Usable(time.Now().UTC()))
	require.WithinDuration(t, before.Add(ttl), c.ExpiresAt, 2*time.Second)

	stored, err := challengeRepo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestIssueAllowsMultipleOutstanding(t *testing.T) {
	keyRepo := newMemKeyRepo()
	challengeRepo := newMemChallengeRepo()
	svc := NewChallengeService(keyRepo, challengeRepo, 0)

	_, pemStr := newDeviceKeyPair(t)
	userID, deviceID := approvedPair(t, keyRepo, pemStr)

	first, err := svc.Issue(context.Background(), userID, deviceID)
	require.NoError(t, err)
	second, err := svc.Issue(context.Background(), userID, deviceID)
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
	require.NotEqual(t, first.Nonce, second.Nonce)

	// Issuing again never invalidates an earlier challenge.
	stored, err := challengeRepo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	require.True(t, stored.Usable(time.Now().UTC()))
}
