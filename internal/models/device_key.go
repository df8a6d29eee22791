package models

import (
	"time"

	"github.com/google/uuid"
)

// KeyState is the lifecycle state of a device public key.
type KeyState string

const (
	// KeyStateNone is never stored; StatusFor reports it when no key
	// row exists for a (user, device) pair.
	KeyStateNone     KeyState = "none"
	KeyStatePending  KeyState = "pending"
	KeyStateApproved KeyState = "approved"
	KeyStateRevoked  KeyState = "revoked"
)

// DeviceKey is one enrolled device's public key for one user.
// Revoked is terminal: re-enrolling a device creates a fresh row.
type DeviceKey struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	DeviceID     string     `json:"device_id"`
	PublicKeyPEM string     `json:"public_key_pem"`
	State        KeyState   `json:"state"`
	RegisteredAt time.Time  `json:"registered_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	DecidedBy    *uuid.UUID `json:"decided_by,omitempty"`
}
