package handlers

import (
	"net/http"

	"tpm-hub/internal/middleware"
	"tpm-hub/internal/service"
	"tpm-hub/pkg/validator"
)

// SuggestionHandler handles author-side suggestion requests
type SuggestionHandler struct {
	suggestionService *service.SuggestionService
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestionService *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

type confirmRequest struct {
	Token string `json:"token" validate:"required"`
}

// Create stores a new suggestion
// @Summary Create suggestion
// @Description Create a suggestion as a draft, or submitted when submit is true
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.SuggestionInput true "Suggestion form"
// @Success 201 {object} models.Suggestion
// @Failure 400 {object} map[string]string "Validation error"
// @Router /suggestions [post]
func (h *SuggestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req service.SuggestionInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	sg, err := h.suggestionService.Create(user, req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, sg)
}

// ListMine lists the authenticated user's suggestions
// @Summary My suggestions
// @Description List the author's own suggestions with normalized grades and statuses
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Suggestion
// @Router /suggestions/mine [get]
func (h *SuggestionHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	suggestions, err := h.suggestionService.ListMine(user.ID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, suggestions)
}

// Get returns one suggestion
// @Summary Get suggestion
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Success 200 {object} models.Suggestion
// @Failure 404 {object} map[string]string "Not found"
// @Router /suggestions/{id} [get]
func (h *SuggestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	sg, err := h.suggestionService.Get(user, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sg)
}

// Update edits a suggestion
// @Summary Edit suggestion
// @Description Edit title, body and attachment; re-saves as draft or submitted
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Param request body service.SuggestionInput true "Suggestion form"
// @Success 200 {object} models.Suggestion
// @Failure 409 {object} map[string]string "Terminal state"
// @Router /suggestions/{id} [put]
func (h *SuggestionHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req service.SuggestionInput
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	sg, err := h.suggestionService.Update(user, r.PathValue("id"), req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sg)
}

// BeginRecall starts the two-step recall of a submitted suggestion
// @Summary Begin recall
// @Description Mark a submitted or under-review suggestion for recall; returns a confirmation token
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Success 200 {object} map[string]string "Confirmation token"
// @Failure 409 {object} map[string]string "Not recallable"
// @Router /suggestions/{id}/recall [post]
func (h *SuggestionHandler) BeginRecall(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	token, err := h.suggestionService.BeginRecall(user, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"confirmation_token": token})
}

// ConfirmRecall commits a pending recall
// @Summary Confirm recall
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body confirmRequest true "Confirmation token"
// @Success 200 {object} models.Suggestion
// @Failure 404 {object} map[string]string "Unknown or expired token"
// @Router /suggestions/recall/confirm [post]
func (h *SuggestionHandler) ConfirmRecall(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	sg, err := h.suggestionService.ConfirmRecall(user, req.Token)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sg)
}

// BeginDelete starts the two-step deletion of a suggestion
// @Summary Begin delete
// @Description Mark a suggestion for deletion; returns a confirmation token
// @Tags Suggestions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Success 200 {object} map[string]string "Confirmation token"
// @Failure 409 {object} map[string]string "Not deletable by this actor"
// @Router /suggestions/{id}/delete [post]
func (h *SuggestionHandler) BeginDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	token, err := h.suggestionService.BeginDelete(user, r.PathValue("id"))
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"confirmation_token": token})
}

// ConfirmDelete commits a pending deletion
// @Summary Confirm delete
// @Tags Suggestions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body confirmRequest true "Confirmation token"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Unknown or expired token"
// @Router /suggestions/delete/confirm [post]
func (h *SuggestionHandler) ConfirmDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req confirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	if err := h.suggestionService.ConfirmDelete(user, req.Token); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Suggestion deleted"})
}
