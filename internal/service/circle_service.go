package service

import (
	"fmt"
	"log/slog"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/store"
)

type CircleService struct {
	circleRepo *repository.CircleRepository
}

func NewCircleService(circleRepo *repository.CircleRepository) *CircleService {
	return &CircleService{circleRepo: circleRepo}
}

// CircleInput is the activity report form.
type CircleInput struct {
	TeamName   string `json:"team_name" validate:"required"`
	Body       string `json:"body"`
	Attachment string `json:"attachment"`
}

// Create stores a new activity report. Reports are write-once and
// always submitted; there is no draft or grading for circles.
func (s *CircleService) Create(author *models.User, in CircleInput) (*models.CircleActivity, error) {
	if in.TeamName == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidation)
	}

	now := time.Now()
	a := &models.CircleActivity{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedOn:  now.Format(store.DateLayout),
		TeamName:   in.TeamName,
		Body:       in.Body,
		Attachment: in.Attachment,
		Status:     models.StatusSubmitted,
	}
	if err := s.circleRepo.Create(a, now); err != nil {
		return nil, err
	}

	slog.Info("Circle activity created", "activity_id", a.ID, "author", author.ID, "team", a.TeamName)
	return a, nil
}

// List returns every activity report in table order.
func (s *CircleService) List() ([]models.CircleActivity, error) {
	return s.circleRepo.All()
}
