package controllers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/campuskit/attendance-service/internal/dtos"
	"github.com/campuskit/attendance-service/internal/middleware"
	"github.com/campuskit/attendance-service/internal/models"
	"github.com/campuskit/attendance-service/internal/services"
	"github.com/campuskit/attendance-service/internal/utils"
)

type AttendanceController struct {
	attendance services.AttendanceService
}

func NewAttendanceController(attendance services.AttendanceService) *AttendanceController {
	return &AttendanceController{attendance: attendance}
}

func sessionToResponse(s *models.AttendanceSession) dtos.SessionResponse {
	return dtos.SessionResponse{
		SessionID: s.ID.String(),
		CourseID:  s.CourseID,
		OpenAt:    s.OpenAt,
		CloseAt:   s.CloseAt,
		Status:    string(s.Status),
	}
}

// POST /api/v1/sessions (professor)
func (c *AttendanceController) OpenSessionHandler(w http.ResponseWriter, r *http.Request) {
	professorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated professor", nil)
		return
	}

	var req dtos.OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "course_id and a valid open/close window are required", nil, err)
		return
	}

	sess, err := c.attendance.OpenSession(r.Context(), professorID, req.CourseID, req.OpenAt, req.CloseAt)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, sessionToResponse(sess))
}

// POST /api/v1/sessions/{sessionID}/close (professor)
func (c *AttendanceController) CloseSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(mux.Vars(r)["sessionID"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "sessionID must be a UUID", nil, err)
		return
	}

	sess, err := c.attendance.CloseSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionToResponse(sess))
}

// GET /api/v1/sessions/{sessionID}
func (c *AttendanceController) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(mux.Vars(r)["sessionID"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "sessionID must be a UUID", nil, err)
		return
	}

	sess, err := c.attendance.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if sess == nil {
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeSessionNotFound, "Session not found", nil)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sessionToResponse(sess))
}

// GET /api/v1/sessions?course_id=CS101
func (c *AttendanceController) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	courseID := r.URL.Query().Get("course_id")
	if courseID == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "course_id query parameter is required", nil)
		return
	}

	sessions, err := c.attendance.ListSessionsByCourse(r.Context(), courseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]dtos.SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionToResponse(sess))
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// GET /api/v1/sessions/{sessionID}/records (professor)
func (c *AttendanceController) ListRecordsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(mux.Vars(r)["sessionID"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "sessionID must be a UUID", nil, err)
		return
	}

	records, err := c.attendance.ListRecords(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	out := make([]dtos.AttendanceRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, dtos.AttendanceRecordResponse{
			RecordID:   rec.ID.String(),
			SessionID:  rec.SessionID.String(),
			UserID:     rec.UserID.String(),
			DeviceID:   rec.DeviceID,
			VerifiedAt: rec.VerifiedAt,
		})
	}
	utils.RespondWithJSON(w, http.StatusOK, out)
}

// GET /api/v1/sessions/{sessionID}/records/me (student)
func (c *AttendanceController) MyRecordHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated user", nil)
		return
	}
	sessionID, err := uuid.Parse(mux.Vars(r)["sessionID"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "sessionID must be a UUID", nil, err)
		return
	}

	rec, err := c.attendance.GetRecordForUser(r.Context(), sessionID, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if rec == nil {
		utils.RespondErrorWithCode(w, http.StatusNotFound, utils.ErrCodeNotFound, "No attendance record for this session", nil)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.AttendanceRecordResponse{
		RecordID:   rec.ID.String(),
		SessionID:  rec.SessionID.String(),
		UserID:     rec.UserID.String(),
		DeviceID:   rec.DeviceID,
		VerifiedAt: rec.VerifiedAt,
	})
}

// POST /api/v1/attendance/mark (student)
func (c *AttendanceController) MarkHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated user", nil)
		return
	}

	var req dtos.MarkAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "session_id, device_id, challenge_id and signature are required", nil, err)
		return
	}

	sessionID, _ := uuid.Parse(req.SessionID)
	challengeID, _ := uuid.Parse(req.ChallengeID)
	signature, err := base64.RawURLEncoding.DecodeString(req.Signature)
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "signature is not valid base64url", nil, err)
		return
	}

	rec, err := c.attendance.Mark(r.Context(), sessionID, userID, req.DeviceID, challengeID, signature)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.MarkAttendanceResponse{
		RecordID:   rec.ID.String(),
		VerifiedAt: rec.VerifiedAt,
	})
}
