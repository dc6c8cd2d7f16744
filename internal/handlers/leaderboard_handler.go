package handlers

import (
	"net/http"
	"time"

	"tpm-hub/internal/service"
)

// LeaderboardHandler handles ranking and activity requests
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// Monthly returns the current month's author top 3
// @Summary Monthly author ranking
// @Description Top 3 authors by approved points in the current calendar month
// @Tags Leaderboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AuthorRank
// @Router /leaderboard/monthly [get]
func (h *LeaderboardHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.leaderboardService.MonthlyTopAuthors(time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ranks)
}

// Departments returns the cumulative department top 5
// @Summary Department ranking
// @Description Top 5 departments by cumulative approved points over all time
// @Tags Leaderboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DepartmentRank
// @Router /leaderboard/departments [get]
func (h *LeaderboardHandler) Departments(w http.ResponseWriter, r *http.Request) {
	ranks, err := h.leaderboardService.DepartmentRanking()
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, ranks)
}

// Activity returns per-department submission counts
// @Summary Department activity
// @Description Suggestion counts per configured department for the current year and month
// @Tags Leaderboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.DepartmentActivity
// @Router /leaderboard/activity [get]
func (h *LeaderboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.leaderboardService.DepartmentActivity(time.Now())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, activity)
}
