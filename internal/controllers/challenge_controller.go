package controllers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/campuskit/attendance-service/internal/dtos"
	"github.com/campuskit/attendance-service/internal/middleware"
	"github.com/campuskit/attendance-service/internal/services"
	"github.com/campuskit/attendance-service/internal/utils"
)

type ChallengeController struct {
	challenges services.ChallengeService
}

func NewChallengeController(challenges services.ChallengeService) *ChallengeController {
	return &ChallengeController{challenges: challenges}
}

// POST /api/v1/challenges
func (c *ChallengeController) IssueHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated user", nil)
		return
	}

	var req dtos.IssueChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "device_id is required", nil, err)
		return
	}

	ch, err := c.challenges.Issue(r.Context(), userID, req.DeviceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.ChallengeResponse{
		ChallengeID: ch.ID.String(),
		Nonce:       base64.RawURLEncoding.EncodeToString(ch.Nonce),
		ExpiresAt:   ch.ExpiresAt,
	})
}
