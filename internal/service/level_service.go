package service

import (
	"fmt"

	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
)

type LevelService struct {
	levelRepo *repository.LevelRepository
	suggRepo  *repository.SuggestionRepository
}

func NewLevelService(levelRepo *repository.LevelRepository, suggRepo *repository.SuggestionRepository) *LevelService {
	return &LevelService{levelRepo: levelRepo, suggRepo: suggRepo}
}

// PointsFor returns a user's ledger value: the sum of points over their
// approved suggestions, recomputed from the persisted table.
func (s *LevelService) PointsFor(userID string) (int, error) {
	suggestions, err := s.suggRepo.ForAuthor(userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, sg := range suggestions {
		if sg.Status == models.StatusApproved {
			total += sg.Points
		}
	}
	return total, nil
}

// StatusFor places a user on the ladder from their ledger value.
func (s *LevelService) StatusFor(userID string) (*models.LevelStatus, error) {
	points, err := s.PointsFor(userID)
	if err != nil {
		return nil, err
	}
	ladder, err := s.levelRepo.Ladder()
	if err != nil {
		return nil, err
	}
	status := PlaceOnLadder(ladder, points)
	return &status, nil
}

// Ladder returns the configured tier ladder.
func (s *LevelService) Ladder() ([]models.LevelTier, error) {
	return s.levelRepo.Ladder()
}

// SaveLadder replaces the tier ladder. Root only. The ladder must keep
// a threshold-0 floor tier and non-negative thresholds; it is re-sorted
// ascending on save.
func (s *LevelService) SaveLadder(actor *models.User, ladder []models.LevelTier) error {
	if actor.Role != models.RoleRoot {
		return fmt.Errorf("%w: only root can configure the tier ladder", ErrPermission)
	}
	if len(ladder) == 0 {
		return fmt.Errorf("%w: the ladder needs at least one tier", ErrValidation)
	}
	hasFloor := false
	for _, tier := range ladder {
		if tier.Name == "" {
			return fmt.Errorf("%w: every tier needs a name", ErrValidation)
		}
		if tier.Threshold < 0 {
			return fmt.Errorf("%w: thresholds cannot be negative", ErrValidation)
		}
		if tier.Threshold == 0 {
			hasFloor = true
		}
	}
	if !hasFloor {
		return fmt.Errorf("%w: a threshold-0 floor tier is required", ErrValidation)
	}
	return s.levelRepo.Save(ladder)
}

// PlaceOnLadder classifies a points value against a ladder sorted
// ascending by threshold. The current tier is the greatest threshold
// not above the points (inclusive boundary); the next tier is the
// smallest threshold strictly above, or the MAX sentinel past the top
// rung. Progress is clamped to [0,1] and defined as 0 when the
// denominator is not positive.
func PlaceOnLadder(ladder []models.LevelTier, points int) models.LevelStatus {
	status := models.LevelStatus{
		Points:   points,
		NextTier: models.MaxTier,
	}
	if len(ladder) == 0 {
		return status
	}

	current := ladder[0]
	var next *models.LevelTier
	for i := range ladder {
		if ladder[i].Threshold <= points {
			current = ladder[i]
		} else {
			next = &ladder[i]
			break
		}
	}

	status.Badge = current.Badge
	status.Tier = current.Name
	if next == nil {
		return status
	}

	status.NextTier = next.Name
	status.NextThreshold = next.Threshold
	status.PointsNeeded = next.Threshold - points

	denom := next.Threshold - current.Threshold
	if denom <= 0 {
		return status
	}
	progress := float64(points-current.Threshold) / float64(denom)
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	status.Progress = progress
	return status
}
