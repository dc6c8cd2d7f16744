package handlers

import (
	"net/http"

	"tpm-hub/internal/middleware"
	"tpm-hub/internal/service"
	"tpm-hub/pkg/validator"
)

// CircleHandler handles circle activity requests
type CircleHandler struct {
	circleService *service.CircleService
}

// NewCircleHandler creates a new circle handler
func NewCircleHandler(circleService *service.CircleService) *CircleHandler {
	return &CircleHandler{circleService: circleService}
}

// Create stores a new activity report
// @Summary Create circle activity
// @Description Store a small-group activity report; always submitted, no grading
// @Tags Circles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CircleInput true "Activity form"
// @Success 201 {object} models.CircleActivity
// @Failure 400 {object} map[string]string "Validation error"
// @Router /circles [post]
func (h *CircleHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req service.CircleInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.circleService.Create(user, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, a)
}

// List lists every activity report
// @Summary List circle activities
// @Tags Circles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.CircleActivity
// @Router /circles [get]
func (h *CircleHandler) List(w http.ResponseWriter, r *http.Request) {
	activities, err := h.circleService.List()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, activities)
}
