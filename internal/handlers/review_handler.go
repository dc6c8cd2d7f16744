package handlers

import (
	"net/http"
	"strconv"

	"tpm-hub/internal/middleware"
	"tpm-hub/internal/scoring"
	"tpm-hub/internal/service"
)

// ReviewHandler handles reviewer-side requests
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// List returns the filtered, paginated review listing
// @Summary Review listing
// @Description List suggestions for review with date range, author, title, status and grade filters, 15 rows per page
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param date_from query string false "Start date (yyyy-mm-dd)"
// @Param date_to query string false "End date (yyyy-mm-dd)"
// @Param author query string false "Author name substring"
// @Param title query string false "Title keyword"
// @Param status query string false "Status filter"
// @Param grade query string false "Grade filter"
// @Param page query int false "Page number (1-based)"
// @Success 200 {object} service.ReviewPage
// @Failure 403 {object} map[string]string "Reviewers only"
// @Router /review/suggestions [get]
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	filter := service.ReviewFilter{
		DateFrom:   q.Get("date_from"),
		DateTo:     q.Get("date_to"),
		AuthorName: q.Get("author"),
		Title:      q.Get("title"),
		Status:     q.Get("status"),
		Grade:      q.Get("grade"),
		Page:       page,
	}

	result, err := h.reviewService.List(user, filter)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// StartReview moves a submitted suggestion under review
// @Summary Start review
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "Illegal state"
// @Router /review/suggestions/{id}/start [post]
func (h *ReviewHandler) StartReview(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.reviewService.StartReview(user, r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Review started"})
}

// Approve grades and approves a suggestion
// @Summary Approve suggestion
// @Description Validate the rubric, derive grade and points and approve in one update
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Param request body scoring.Rubric true "Rubric sub-scores"
// @Success 200 {object} models.Suggestion
// @Failure 400 {object} map[string]string "Rubric out of range"
// @Failure 409 {object} map[string]string "Illegal state"
// @Router /review/suggestions/{id}/approve [post]
func (h *ReviewHandler) Approve(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	var rubric scoring.Rubric
	if err := decodeJSON(r, &rubric); err != nil {
		respondWithError(w, http.StatusBadRequest, ErrMsgInvalidRequestBody)
		return
	}

	sg, err := h.reviewService.Approve(user, r.PathValue("id"), rubric)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sg)
}

// Reject rejects a suggestion
// @Summary Reject suggestion
// @Description Set the status to rejected, leaving grade and points untouched; idempotent
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path string true "Suggestion ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} map[string]string "Illegal state"
// @Router /review/suggestions/{id}/reject [post]
func (h *ReviewHandler) Reject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, ErrMsgUnauthorized)
		return
	}

	if err := h.reviewService.Reject(user, r.PathValue("id")); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Suggestion rejected"})
}
