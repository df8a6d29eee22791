package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/campuskit/attendance-service/internal/dtos"
	"github.com/campuskit/attendance-service/internal/middleware"
	"github.com/campuskit/attendance-service/internal/services"
	"github.com/campuskit/attendance-service/internal/utils"
)

// BiometricController exposes device-key registration, status, and the
// admin approve/reject/revoke surface.
type BiometricController struct {
	registry services.KeyRegistryService
}

func NewBiometricController(registry services.KeyRegistryService) *BiometricController {
	return &BiometricController{registry: registry}
}

// GET /api/v1/keys/status?device_id=...
func (c *BiometricController) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated user", nil)
		return
	}
	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "device_id query parameter is required", nil)
		return
	}

	state, err := c.registry.StatusFor(r.Context(), userID, deviceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.KeyStatusResponse{State: string(state)})
}

// POST /api/v1/keys/register
func (c *BiometricController) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated user", nil)
		return
	}

	var req dtos.RegisterKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "device_id and public_key_pem are required", nil, err)
		return
	}

	k, err := c.registry.Register(r.Context(), userID, req.DeviceID, req.PublicKeyPEM)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dtos.KeyResponse{
		KeyID: k.ID.String(),
		State: string(k.State),
	})
}

// POST /api/v1/keys/{keyID}/decide (admin)
func (c *BiometricController) DecideHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated admin", nil)
		return
	}
	keyID, err := uuid.Parse(mux.Vars(r)["keyID"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "keyID must be a UUID", nil, err)
		return
	}

	var req dtos.DecideKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid JSON payload", nil, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeValidation, "outcome must be approve or reject", nil, err)
		return
	}

	k, err := c.registry.Decide(r.Context(), keyID, adminID, req.Outcome == "approve")
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.KeyResponse{
		KeyID:     k.ID.String(),
		State:     string(k.State),
		DecidedAt: k.DecidedAt,
	})
}

// POST /api/v1/keys/{keyID}/revoke (admin)
func (c *BiometricController) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Missing authenticated admin", nil)
		return
	}
	keyID, err := uuid.Parse(mux.Vars(r)["keyID"])
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "keyID must be a UUID", nil, err)
		return
	}

	k, err := c.registry.Revoke(r.Context(), keyID, adminID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.KeyResponse{
		KeyID:     k.ID.String(),
		State:     string(k.State),
		DecidedAt: k.DecidedAt,
	})
}
