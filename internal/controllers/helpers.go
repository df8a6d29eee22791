package controllers

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/campuskit/attendance-service/internal/utils"
)

var validate = validator.New()

// serviceErrorStatus maps every domain error to its HTTP status and
// public code. Anything unmapped is a durable-store failure and
// surfaces as 503 store_unavailable so clients know the request state
// is unknown and a blind retry is unsafe.
var serviceErrorStatus = []struct {
	err     error
	status  int
	code    string
	message string
}{
	{utils.ErrAlreadyPending, http.StatusConflict, utils.ErrCodeAlreadyPending, "A registration for this device is already awaiting review"},
	{utils.ErrNotPending, http.StatusConflict, utils.ErrCodeNotPending, "Key is not awaiting a decision"},
	{utils.ErrNotApproved, http.StatusConflict, utils.ErrCodeNotApproved, "Key is not approved"},
	{utils.ErrKeyNotApproved, http.StatusForbidden, utils.ErrCodeKeyNotApproved, "No approved key for this device"},
	{utils.ErrChallengeNotFound, http.StatusNotFound, utils.ErrCodeChallengeNotFound, "Challenge not found"},
	{utils.ErrChallengeExpired, http.StatusGone, utils.ErrCodeChallengeExpired, "Challenge has expired"},
	{utils.ErrChallengeAlreadyUsed, http.StatusConflict, utils.ErrCodeChallengeAlreadyUsed, "Challenge was already used"},
	{utils.ErrSignatureInvalid, http.StatusUnauthorized, utils.ErrCodeSignatureInvalid, "Signature verification failed"},
	{utils.ErrSessionClosed, http.StatusConflict, utils.ErrCodeSessionClosed, "Session is not accepting attendance"},
	{utils.ErrSessionNotFound, http.StatusNotFound, utils.ErrCodeSessionNotFound, "Session not found"},
	{utils.ErrDuplicateAttendance, http.StatusConflict, utils.ErrCodeDuplicateAttendance, "Attendance already recorded for this session"},
}

func respondServiceError(w http.ResponseWriter, err error) {
	for _, m := range serviceErrorStatus {
		if errors.Is(err, m.err) {
			utils.RespondErrorWithCode(w, m.status, m.code, m.message, nil, err)
			return
		}
	}
	utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeStoreUnavailable,
		"Durable store unavailable; request outcome unknown", nil, err)
}
