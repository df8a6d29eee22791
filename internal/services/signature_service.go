package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/repositories"
	"github.com/campuskit/attendance-service/internal/utils"
)

// VerifiedSignature is proof that a signature checked out against an
// approved key for a live challenge. It does not consume the
// challenge; consumption is the mark transaction's final step.
type VerifiedSignature struct {
	Challenge *models.Challenge
	Key       *models.DeviceKey
}

// SignatureVerifier validates device signatures over challenges.
// Verification is side-effect free and safe to retry.
type SignatureVerifier interface {
	Verify(ctx context.Context, challengeID uuid.UUID, signature []byte) (*VerifiedSignature, error)
}

type signatureVerifier struct {
	challengeRepo repositories.ChallengeRepository
	keyRepo       repositories.DeviceKeyRepository
}

func NewSignatureVerifier(
	challengeRepo repositories.ChallengeRepository,
	keyRepo repositories.DeviceKeyRepository,
) SignatureVerifier {
	return &signatureVerifier{challengeRepo: challengeRepo, keyRepo: keyRepo}
}

func (s *signatureVerifier) Verify(ctx context.Context, challengeID uuid.UUID, signature []byte) (*VerifiedSignature, error) {
	c, err := s.challengeRepo.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, utils.ErrChallengeNotFound
	}
	if c.ConsumedAt != nil {
		return nil, utils.ErrChallengeAlreadyUsed
	}
	if time.Now().After(c.ExpiresAt) {
		return nil, utils.ErrChallengeExpired
	}

	// Mandatory freshness recheck: revocation between issuance and
	// verification must fail the attempt.
	key, err := s.keyRepo.GetApproved(ctx, c.UserID, c.DeviceID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, utils.ErrKeyNotApproved
	}

	pub, err := utils.ParseDevicePublicKey(key.PublicKeyPEM)
	if err != nil {
		// Approved key rows went through the same parser at
		// registration; treat a decode failure as an invalid signature
		// rather than a store fault.
		utils.Logger.WithError(err).Errorf("verify: stored key %s is unparseable", key.ID)
		return nil, utils.ErrSignatureInvalid
	}

	if !utils.VerifyChallengeSignature(pub, c.ID.String(), c.UserID.String(), c.DeviceID, c.Nonce, signature) {
		return nil, utils.ErrSignatureInvalid
	}

	return &VerifiedSignature{Challenge: c, Key: key}, nil
}
