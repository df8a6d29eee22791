package dtos

import "time"

type OpenSessionRequest struct {
	CourseID string    `json:"course_id" validate:"required,max=64"`
	OpenAt   time.Time `json:"open_at" validate:"required"`
	CloseAt  time.Time `json:"close_at" validate:"required,gtfield=OpenAt"`
}

type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CourseID  string    `json:"course_id"`
	OpenAt    time.Time `json:"open_at"`
	CloseAt   time.Time `json:"close_at"`
	Status    string    `json:"status"`
}

// MarkAttendanceRequest: signature is ASN.1 DER, base64url-encoded
// without padding, over the scheme's challenge digest.
type MarkAttendanceRequest struct {
	SessionID   string `json:"session_id" validate:"required,uuid4"`
	DeviceID    string `json:"device_id" validate:"required,max=128"`
	ChallengeID string `json:"challenge_id" validate:"required,uuid4"`
	Signature   string `json:"signature" validate:"required,max=512"`
}

type MarkAttendanceResponse struct {
	RecordID   string    `json:"record_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

type AttendanceRecordResponse struct {
	RecordID   string    `json:"record_id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	DeviceID   string    `json:"device_id"`
	VerifiedAt time.Time `json:"verified_at"`
}
