package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

const (
	ErrCodeInvalidPayload       = "invalid_payload"
	ErrCodeValidation           = "validation_error"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeTokenExpired         = "token_expired"
	ErrCodeForbidden            = "forbidden"
	ErrCodeInternal             = "internal_server_error"
	ErrCodeNotFound             = "not_found"
	ErrCodeConflict             = "conflict"
	ErrCodeKeyNotApproved       = "key_not_approved"
	ErrCodeAlreadyPending       = "already_pending"
	ErrCodeNotPending           = "not_pending"
	ErrCodeNotApproved          = "not_approved"
	ErrCodeChallengeNotFound    = "challenge_not_found"
	ErrCodeChallengeExpired     = "challenge_expired"
	ErrCodeChallengeAlreadyUsed = "challenge_already_used"
	ErrCodeSignatureInvalid     = "signature_invalid"
	ErrCodeSessionClosed        = "session_closed"
	ErrCodeSessionNotFound      = "session_not_found"
	ErrCodeDuplicateAttendance  = "duplicate_attendance"
	ErrCodeStoreUnavailable     = "store_unavailable"
)

// ErrorResponse carries a machine-readable code plus a public message.
// `Details` is optional extra context for the client.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RespondErrorWithCode builds a JSON error response with a standard
// code and message. The optional `details` is included if non-nil.
func RespondErrorWithCode(
	w http.ResponseWriter,
	status int,
	errorCode string,
	publicMessage string,
	details any,
	devErrs ...error,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errBody := ErrorResponse{
		Code:    errorCode,
		Message: publicMessage,
	}
	if details != nil {
		errBody.Details = details
	}
	_ = json.NewEncoder(w).Encode(errBody)

	// devErr is optional; only handle if provided
	if len(devErrs) > 0 && devErrs[0] != nil {
		Logger.WithFields(logrus.Fields{
			"status": status,
			"error":  devErrs[0].Error(),
		}).Error(publicMessage)
	} else {
		Logger.WithFields(logrus.Fields{
			"status": status,
		}).Error(publicMessage)
	}
}

// RespondWithJSON for successful cases
func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
