package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the state of an attendance session.
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "OPEN"
	SessionStatusClosed SessionStatus = "CLOSED"
)

// AttendanceSession is a professor-controlled window during which
// marking is accepted.
type AttendanceSession struct {
	ID          uuid.UUID     `json:"id"`
	ProfessorID uuid.UUID     `json:"professor_id"`
	CourseID    string        `json:"course_id"`
	OpenAt      time.Time     `json:"open_at"`
	CloseAt     time.Time     `json:"close_at"`
	Status      SessionStatus `json:"status"`
}

// AcceptsMarking reports whether a record may be created right now.
func (s *AttendanceSession) AcceptsMarking(now time.Time) bool {
	return s.Status == SessionStatusOpen &&
		!now.Before(s.OpenAt) && !now.After(s.CloseAt)
}

// AttendanceRecord is the durable proof that a user attended a session.
// Never mutated, never deleted. Unique per (session, user) and per
// challenge.
type AttendanceRecord struct {
	ID          uuid.UUID `json:"id"`
	SessionID   uuid.UUID `json:"session_id"`
	UserID      uuid.UUID `json:"user_id"`
	DeviceID    string    `json:"device_id"`
	ChallengeID uuid.UUID `json:"challenge_id"`
	VerifiedAt  time.Time `json:"verified_at"`
}
