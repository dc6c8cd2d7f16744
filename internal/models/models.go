package models

import (
	"time"
)

// User roles. Members write suggestions, reviewers grade them, root
// administers the system. Exactly one bootstrap root account exists.
const (
	RoleMember   = "member"
	RoleReviewer = "reviewer"
	RoleRoot     = "root"
)

// Suggestion lifecycle statuses.
const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"

	// StatusReturned is a legacy label still present in old tables.
	// It is normalized to StatusRejected on read.
	StatusReturned = "returned"
)

// Grades assigned to approved suggestions.
const (
	GradeS = "S"
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
)

// User represents an account in the user table.
type User struct {
	ID           string `json:"id"`
	PasswordHash string `json:"-"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	Department   string `json:"department"`
	Title        string `json:"title"`
	JoinedOn     string `json:"joined_on"`
}

// Suggestion represents an improvement proposal moving through the
// review lifecycle. Grade and Points are set only on approval;
// ScoreTotal keeps the raw rubric total the grade was derived from.
type Suggestion struct {
	ID         string `json:"id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	CreatedOn  string `json:"created_on"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"`
	Status     string `json:"status"`
	Grade      string `json:"grade,omitempty"`
	Points     int    `json:"points"`
	ScoreTotal int    `json:"score_total"`
}

// Editable reports whether the suggestion may still be modified by its
// author. Approved and rejected suggestions are read-only.
func (s *Suggestion) Editable() bool {
	switch s.Status {
	case StatusDraft, StatusSubmitted, StatusUnderReview:
		return true
	}
	return false
}

// CircleActivity is a small-group activity report. It is write-once and
// listed, with no grading.
type CircleActivity struct {
	ID         string `json:"id"`
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
	CreatedOn  string `json:"created_on"`
	TeamName   string `json:"team_name"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"`
	Status     string `json:"status"`
}

// LevelTier is one rung of the achievement ladder. Tiers are kept
// sorted ascending by threshold and the threshold-0 tier is the floor.
type LevelTier struct {
	Badge     string `json:"badge"`
	Name      string `json:"name"`
	Threshold int    `json:"threshold"`
}

// LevelStatus describes where a user sits on the ladder.
type LevelStatus struct {
	Badge         string  `json:"badge"`
	Tier          string  `json:"tier"`
	Points        int     `json:"points"`
	NextTier      string  `json:"next_tier"`
	NextThreshold int     `json:"next_threshold"`
	PointsNeeded  int     `json:"points_needed"`
	Progress      float64 `json:"progress"`
}

// MaxTier is the sentinel next-tier name for users past the top rung.
const MaxTier = "MAX"

// Session is a persisted login session keyed by the token's JTI.
// Deleting the row invalidates the token.
type Session struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

// AuditEntry records a mutation for the audit trail.
type AuditEntry struct {
	ActorID   string    `json:"actor_id,omitempty"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Details   string    `json:"details,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthorRank is one row of the monthly leaderboard.
type AuthorRank struct {
	Rank       int    `json:"rank"`
	AuthorName string `json:"author_name"`
	Department string `json:"department"`
	Points     int    `json:"points"`
}

// DepartmentRank is one row of the cumulative department ranking.
type DepartmentRank struct {
	Rank       int    `json:"rank"`
	Department string `json:"department"`
	Points     int    `json:"points"`
}

// DepartmentActivity counts submissions per department for the current
// year and month.
type DepartmentActivity struct {
	Department string `json:"department"`
	YearCount  int    `json:"year_count"`
	MonthCount int    `json:"month_count"`
}
