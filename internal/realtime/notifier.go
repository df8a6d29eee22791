// Package realtime fans out key-state and session-state changes to
// connected clients. Delivery is best-effort, at-least-once: a missed
// event only delays a client's refresh, and every event can be
// reconstructed from the read endpoints. Nothing in here participates
// in the correctness of the gating operations.
package realtime

import (
	"context"
	"time"
)

const (
	TopicKeyPending       = "key.pending"
	TopicKeyApproved      = "key.approved"
	TopicKeyRevoked       = "key.revoked"
	TopicSessionOpened    = "session.opened"
	TopicSessionClosed    = "session.closed"
	TopicAttendanceMarked = "attendance.marked"
)

// Event identifies the entity that changed. Consumers de-duplicate on
// (EntityID, At) since delivery is at-least-once.
type Event struct {
	Topic    string    `json:"topic"`
	EntityID string    `json:"entity_id"`
	UserID   string    `json:"user_id,omitempty"`
	DeviceID string    `json:"device_id,omitempty"`
	State    string    `json:"state,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier publishes events and hands out subscriptions for the SSE
// bridge. Publish must never fail the calling operation; failures are
// logged and dropped.
type Notifier interface {
	Publish(ctx context.Context, ev Event)
	// Subscribe returns a channel of events and a cancel func that
	// releases the subscription. The channel is closed on cancel.
	Subscribe(ctx context.Context) (<-chan Event, func(), error)
}
