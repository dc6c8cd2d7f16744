package service

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/scoring"
	"tpm-hub/internal/store"
)

// ReviewPageSize is the fixed number of rows per review listing page.
const ReviewPageSize = 15

type ReviewService struct {
	suggRepo  *repository.SuggestionRepository
	userRepo  *repository.UserRepository
	levelSvc  *LevelService
	auditRepo *repository.AuditRepository
}

func NewReviewService(
	suggRepo *repository.SuggestionRepository,
	userRepo *repository.UserRepository,
	levelSvc *LevelService,
	auditRepo *repository.AuditRepository,
) *ReviewService {
	return &ReviewService{
		suggRepo:  suggRepo,
		userRepo:  userRepo,
		levelSvc:  levelSvc,
		auditRepo: auditRepo,
	}
}

// ReviewFilter narrows the review listing. Zero values mean "no
// filter"; dates use the store's yyyy-mm-dd layout.
type ReviewFilter struct {
	DateFrom   string
	DateTo     string
	AuthorName string
	Title      string
	Status     string
	Grade      string
	Page       int
}

// ReviewItem is one row of the review listing: the suggestion joined
// with the author's department and ladder position.
type ReviewItem struct {
	models.Suggestion
	Department  string `json:"department"`
	AuthorBadge string `json:"author_badge"`
	AuthorTier  string `json:"author_tier"`
}

// ReviewPage is one page of the review listing.
type ReviewPage struct {
	Items      []ReviewItem `json:"items"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Total      int          `json:"total"`
}

// List returns the filtered, paginated review listing. Reviewers and
// root only.
func (s *ReviewService) List(actor *models.User, f ReviewFilter) (*ReviewPage, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}

	all, err := s.suggRepo.All()
	if err != nil {
		return nil, err
	}
	depts, err := s.userRepo.DepartmentsByID()
	if err != nil {
		return nil, err
	}
	ladder, err := s.levelSvc.Ladder()
	if err != nil {
		return nil, err
	}

	from, hasFrom := store.AsDate(f.DateFrom)
	to, hasTo := store.AsDate(f.DateTo)

	var matched []models.Suggestion
	for _, sg := range all {
		if hasFrom || hasTo {
			d, ok := store.AsDate(sg.CreatedOn)
			if !ok {
				continue
			}
			if hasFrom && d.Before(from) {
				continue
			}
			if hasTo && d.After(to) {
				continue
			}
		}
		if f.AuthorName != "" && !strings.Contains(sg.AuthorName, f.AuthorName) {
			continue
		}
		if f.Title != "" && !strings.Contains(sg.Title, f.Title) {
			continue
		}
		if f.Status != "" && sg.Status != f.Status {
			continue
		}
		if f.Grade != "" && sg.Grade != repository.NormalizeGrade(f.Grade) {
			continue
		}
		matched = append(matched, sg)
	}

	total := len(matched)
	totalPages := (total + ReviewPageSize - 1) / ReviewPageSize
	if totalPages == 0 {
		totalPages = 1
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * ReviewPageSize
	end := start + ReviewPageSize
	if end > total {
		end = total
	}

	// Ladder positions per author, computed once per distinct author on
	// the page.
	points := make(map[string]int)
	items := make([]ReviewItem, 0, end-start)
	for _, sg := range matched[start:end] {
		if _, ok := points[sg.AuthorID]; !ok {
			p, err := s.levelSvc.PointsFor(sg.AuthorID)
			if err != nil {
				return nil, err
			}
			points[sg.AuthorID] = p
		}
		place := PlaceOnLadder(ladder, points[sg.AuthorID])
		items = append(items, ReviewItem{
			Suggestion:  sg,
			Department:  depts[sg.AuthorID],
			AuthorBadge: place.Badge,
			AuthorTier:  place.Tier,
		})
	}

	return &ReviewPage{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	}, nil
}

// StartReview moves a submitted suggestion under review.
func (s *ReviewService) StartReview(actor *models.User, id string) error {
	if err := requireReviewer(actor); err != nil {
		return err
	}
	err := s.suggRepo.Mutate(id, func(sg *models.Suggestion) error {
		switch sg.Status {
		case models.StatusSubmitted:
			sg.Status = models.StatusUnderReview
			return nil
		case models.StatusUnderReview:
			// Another reviewer already picked it up.
			return nil
		default:
			return fmt.Errorf("%w: cannot start reviewing a %s suggestion", ErrPolicy, sg.Status)
		}
	})
	if errors.Is(err, repository.ErrSuggestionNotFound) {
		return fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
	}
	return err
}

// Approve grades a suggestion from the rubric and approves it. Status,
// grade, points and the raw total are persisted in one record update.
func (s *ReviewService) Approve(actor *models.User, id string, rubric scoring.Rubric) (*models.Suggestion, error) {
	if err := requireReviewer(actor); err != nil {
		return nil, err
	}
	if err := rubric.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	total := rubric.Total()
	grade, points := scoring.Grade(total)

	var approved models.Suggestion
	err := s.suggRepo.Mutate(id, func(sg *models.Suggestion) error {
		if sg.Status != models.StatusSubmitted && sg.Status != models.StatusUnderReview {
			return fmt.Errorf("%w: cannot approve a %s suggestion", ErrPolicy, sg.Status)
		}
		sg.Status = models.StatusApproved
		sg.Grade = grade
		sg.Points = points
		sg.ScoreTotal = total
		approved = *sg
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return nil, fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
		}
		return nil, err
	}

	s.audit(actor.ID, "approve", "suggestions", fmt.Sprintf("suggestion %s approved: grade %s, %d points (total %d)", id, grade, points, total))
	slog.Info("Suggestion approved", "suggestion_id", id, "reviewer", actor.ID, "grade", grade, "points", points)
	return &approved, nil
}

// Reject moves a suggestion to rejected, touching only the status.
// Rejecting an already-rejected suggestion is a no-op, so repeated
// clicks cannot disturb previously stored grade or points.
func (s *ReviewService) Reject(actor *models.User, id string) error {
	if err := requireReviewer(actor); err != nil {
		return err
	}
	err := s.suggRepo.Mutate(id, func(sg *models.Suggestion) error {
		switch sg.Status {
		case models.StatusSubmitted, models.StatusUnderReview:
			sg.Status = models.StatusRejected
			return nil
		case models.StatusRejected:
			return nil
		default:
			return fmt.Errorf("%w: cannot reject a %s suggestion", ErrPolicy, sg.Status)
		}
	})
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
		}
		return err
	}

	s.audit(actor.ID, "reject", "suggestions", fmt.Sprintf("suggestion %s rejected", id))
	return nil
}

func requireReviewer(actor *models.User) error {
	if actor.Role != models.RoleReviewer && actor.Role != models.RoleRoot {
		return fmt.Errorf("%w: only reviewers and root can review suggestions", ErrPermission)
	}
	return nil
}

func (s *ReviewService) audit(actorID, action, resource, details string) {
	err := s.auditRepo.Append(&models.AuditEntry{
		CreatedAt: time.Now(),
		ActorID:   actorID,
		Action:    action,
		Resource:  resource,
		Details:   details,
	})
	if err != nil {
		slog.Warn("Failed to write audit entry", "action", action, "error", err)
	}
}
