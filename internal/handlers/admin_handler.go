package handlers

import (
	"net/http"

	"tpm-hub/internal/middleware"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/service"
	"tpm-hub/pkg/validator"
)

// AdminHandler handles root-only account administration
type AdminHandler struct {
	userService *service.UserService
	auditRepo   *repository.AuditRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(userService *service.UserService, auditRepo *repository.AuditRepository) *AdminHandler {
	return &AdminHandler{userService: userService, auditRepo: auditRepo}
}

type bulkDeleteRequest struct {
	IDs     []string `json:"ids"`
	Indices []int    `json:"indices"`
}

type bulkDeleteConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ListUsers lists every account
// @Summary List accounts
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 403 {object} map[string]string "Root only"
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	users, err := h.userService.List(user)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, users)
}

// BeginBulkDelete marks accounts for deletion
// @Summary Begin bulk account deletion
// @Description Select accounts by id and by row index; the bootstrap root account is always excluded. Returns the selection and a confirmation token.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body bulkDeleteRequest true "Selection"
// @Success 200 {object} map[string]interface{} "Token and selected accounts"
// @Failure 400 {object} map[string]string "Empty or invalid selection"
// @Failure 403 {object} map[string]string "Root only"
// @Router /admin/users/delete [post]
func (h *AdminHandler) BeginBulkDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	token, selected, err := h.userService.BeginBulkDelete(user, req.IDs, req.Indices)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"confirmation_token": token,
		"selected":           selected,
	})
}

// ConfirmBulkDelete commits a pending bulk deletion
// @Summary Confirm bulk account deletion
// @Description Re-authenticate with the acting admin's own password; a mismatch aborts with no rows removed
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body bulkDeleteConfirmRequest true "Token and password"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string "Re-authentication failed"
// @Failure 404 {object} map[string]string "Unknown or expired token"
// @Router /admin/users/delete/confirm [post]
func (h *AdminHandler) ConfirmBulkDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var req bulkDeleteConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}
	if err := validator.ValidateStruct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.ConfirmBulkDelete(user, req.Token, req.Password); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Accounts deleted"})
}

// AuditLog returns the audit trail
// @Summary Audit log
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AuditEntry
// @Failure 403 {object} map[string]string "Root only"
// @Router /admin/audit [get]
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.auditRepo.All()
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load audit log")
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}
