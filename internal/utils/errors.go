package utils

import "errors"

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	// Key registry
	ErrKeyNotApproved = errors.New("key_not_approved")
	ErrAlreadyPending = errors.New("already_pending")
	ErrNotPending     = errors.New("not_pending")
	ErrNotApproved    = errors.New("not_approved")

	// Challenge lifecycle
	ErrChallengeNotFound    = errors.New("challenge_not_found")
	ErrChallengeExpired     = errors.New("challenge_expired")
	ErrChallengeAlreadyUsed = errors.New("challenge_already_used")

	// Cryptographic failure
	ErrSignatureInvalid = errors.New("signature_invalid")

	// Attendance sessions
	ErrSessionClosed       = errors.New("session_closed")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrDuplicateAttendance = errors.New("duplicate_attendance")
)
