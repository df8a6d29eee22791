package models

import (
	"time"

	"github.com/google/uuid"
)

// Challenge is a single-use nonce bound to one (user, device) pair.
// ConsumedAt flips from nil to a timestamp exactly once; the update is
// a conditional write in the store, never a read-then-write.
type Challenge struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	DeviceID   string     `json:"device_id"`
	Nonce      []byte     `json:"-"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// Usable reports whether the challenge can still be presented: not yet
// consumed and not past its expiry.
func (c *Challenge) Usable(now time.Time) bool {
	return c.ConsumedAt == nil && now.Before(c.ExpiresAt)
}
