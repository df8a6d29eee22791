package dtos

import "time"

type IssueChallengeRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=128"`
}

// ChallengeResponse carries the nonce the device must sign,
// base64url-encoded without padding.
type ChallengeResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Nonce       string    `json:"nonce"`
	ExpiresAt   time.Time `json:"expires_at"`
}
