package handlers

import (
	"net/http"

	"tpm-hub/internal/middleware"
	"tpm-hub/internal/models"
	"tpm-hub/internal/service"
)

// LevelHandler handles ledger and ladder requests
type LevelHandler struct {
	levelService *service.LevelService
}

// NewLevelHandler creates a new level handler
func NewLevelHandler(levelService *service.LevelService) *LevelHandler {
	return &LevelHandler{levelService: levelService}
}

// MyLevel returns the authenticated user's ladder position
// @Summary My level
// @Description Ledger points, current tier, next tier and progress
// @Tags Levels
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.LevelStatus
// @Router /levels/me [get]
func (h *LevelHandler) MyLevel(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	status, err := h.levelService.StatusFor(user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, status)
}

// GetLadder returns the tier ladder
// @Summary Tier ladder
// @Tags Levels
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.LevelTier
// @Router /levels/ladder [get]
func (h *LevelHandler) GetLadder(w http.ResponseWriter, r *http.Request) {
	ladder, err := h.levelService.Ladder()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ladder)
}

// SaveLadder replaces the tier ladder
// @Summary Configure tier ladder
// @Description Replace the ladder; root only, re-sorted ascending, a threshold-0 floor tier is required
// @Tags Levels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body []models.LevelTier true "New ladder"
// @Success 200 {array} models.LevelTier
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 403 {object} map[string]string "Root only"
// @Router /admin/levels [put]
func (h *LevelHandler) SaveLadder(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var ladder []models.LevelTier
	if err := decodeJSON(r, &ladder); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.levelService.SaveLadder(user, ladder); err != nil {
		respondWithServiceError(w, err)
		return
	}
	saved, err := h.levelService.Ladder()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, saved)
}
