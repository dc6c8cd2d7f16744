package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/store"
)

type SuggestionService struct {
	suggRepo  *repository.SuggestionRepository
	auditRepo *repository.AuditRepository
	confirm   *ConfirmationBroker
}

func NewSuggestionService(
	suggRepo *repository.SuggestionRepository,
	auditRepo *repository.AuditRepository,
	confirm *ConfirmationBroker,
) *SuggestionService {
	return &SuggestionService{
		suggRepo:  suggRepo,
		auditRepo: auditRepo,
		confirm:   confirm,
	}
}

// SuggestionInput is the create/edit form. Submit false saves a draft.
type SuggestionInput struct {
	Title      string `json:"title" validate:"required"`
	Body       string `json:"body"`
	Attachment string `json:"attachment"`
	Submit     bool   `json:"submit"`
}

// Create stores a new suggestion for the author, as a draft or as
// submitted depending on the input.
func (s *SuggestionService) Create(author *models.User, in SuggestionInput) (*models.Suggestion, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	status := models.StatusDraft
	if in.Submit {
		status = models.StatusSubmitted
	}
	now := time.Now()
	sg := &models.Suggestion{
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedOn:  now.Format(store.DateLayout),
		Title:      in.Title,
		Body:       in.Body,
		Attachment: in.Attachment,
		Status:     status,
	}
	if err := s.suggRepo.Create(sg, now); err != nil {
		return nil, err
	}

	slog.Info("Suggestion created", "suggestion_id", sg.ID, "author", author.ID, "status", sg.Status)
	return sg, nil
}

// Get returns one suggestion. Members see only their own; reviewers and
// root see all.
func (s *SuggestionService) Get(actor *models.User, id string) (*models.Suggestion, error) {
	sg, err := s.suggRepo.Get(id)
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return nil, fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
		}
		return nil, err
	}
	if actor.Role == models.RoleMember && sg.AuthorID != actor.ID {
		return nil, fmt.Errorf("%w: not your suggestion", ErrPermission)
	}
	return sg, nil
}

// ListMine returns the author's own suggestions with legacy grade and
// status labels already normalized.
func (s *SuggestionService) ListMine(authorID string) ([]models.Suggestion, error) {
	return s.suggRepo.ForAuthor(authorID)
}

// Update edits a suggestion's content and re-saves it as a draft or as
// submitted. Only the author may edit, and only while the suggestion is
// still in a non-terminal state.
func (s *SuggestionService) Update(actor *models.User, id string, in SuggestionInput) (*models.Suggestion, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	target := models.StatusDraft
	if in.Submit {
		target = models.StatusSubmitted
	}

	var updated models.Suggestion
	err := s.suggRepo.Mutate(id, func(sg *models.Suggestion) error {
		if sg.AuthorID != actor.ID {
			return fmt.Errorf("%w: only the author can edit a suggestion", ErrPermission)
		}
		if err := validateTransition(sg.Status, target); err != nil {
			return err
		}
		sg.Title = in.Title
		sg.Body = in.Body
		if in.Attachment != "" {
			sg.Attachment = in.Attachment
		}
		sg.Status = target
		updated = *sg
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return nil, fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
		}
		return nil, err
	}

	slog.Info("Suggestion updated", "suggestion_id", id, "author", actor.ID, "status", updated.Status)
	return &updated, nil
}

// BeginRecall marks a submitted or under-review suggestion for recall
// back to draft and returns the confirmation token.
func (s *SuggestionService) BeginRecall(actor *models.User, id string) (string, error) {
	sg, err := s.Get(actor, id)
	if err != nil {
		return "", err
	}
	if sg.AuthorID != actor.ID {
		return "", fmt.Errorf("%w: only the author can recall a suggestion", ErrPermission)
	}
	if sg.Status != models.StatusSubmitted && sg.Status != models.StatusUnderReview {
		return "", fmt.Errorf("%w: cannot recall a %s suggestion", ErrPolicy, sg.Status)
	}
	return s.confirm.Begin(ConfirmRecall, actor.ID, id)
}

// ConfirmRecall commits a pending recall, moving the suggestion back to
// draft so it becomes editable again.
func (s *SuggestionService) ConfirmRecall(actor *models.User, token string) (*models.Suggestion, error) {
	payload, err := s.confirm.Take(token, ConfirmRecall, actor.ID)
	if err != nil {
		return nil, err
	}
	id, ok := payload.(string)
	if !ok {
		return nil, fmt.Errorf("%w: unknown confirmation token", ErrNotFound)
	}

	var recalled models.Suggestion
	err = s.suggRepo.Mutate(id, func(sg *models.Suggestion) error {
		if sg.AuthorID != actor.ID {
			return fmt.Errorf("%w: only the author can recall a suggestion", ErrPermission)
		}
		if sg.Status != models.StatusSubmitted && sg.Status != models.StatusUnderReview {
			return fmt.Errorf("%w: cannot recall a %s suggestion", ErrPolicy, sg.Status)
		}
		sg.Status = models.StatusDraft
		recalled = *sg
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return nil, fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
		}
		return nil, err
	}

	s.audit(actor.ID, "recall", "suggestions", fmt.Sprintf("suggestion %s recalled to draft", id))
	return &recalled, nil
}

// BeginDelete marks a suggestion for deletion. Root may delete from any
// state; the author only while the suggestion is not terminal.
func (s *SuggestionService) BeginDelete(actor *models.User, id string) (string, error) {
	sg, err := s.Get(actor, id)
	if err != nil {
		return "", err
	}
	if err := s.checkDeletable(actor, sg); err != nil {
		return "", err
	}
	return s.confirm.Begin(ConfirmDelete, actor.ID, id)
}

// ConfirmDelete commits a pending deletion.
func (s *SuggestionService) ConfirmDelete(actor *models.User, token string) error {
	payload, err := s.confirm.Take(token, ConfirmDelete, actor.ID)
	if err != nil {
		return err
	}
	id, ok := payload.(string)
	if !ok {
		return fmt.Errorf("%w: unknown confirmation token", ErrNotFound)
	}

	sg, err := s.suggRepo.Get(id)
	if err != nil {
		if errors.Is(err, repository.ErrSuggestionNotFound) {
			return fmt.Errorf("%w: suggestion %s", ErrNotFound, id)
		}
		return err
	}
	if err := s.checkDeletable(actor, sg); err != nil {
		return err
	}
	if err := s.suggRepo.Delete(id); err != nil {
		return err
	}

	s.audit(actor.ID, "delete", "suggestions", fmt.Sprintf("suggestion %s deleted", id))
	slog.Info("Suggestion deleted", "suggestion_id", id, "actor", actor.ID)
	return nil
}

func (s *SuggestionService) checkDeletable(actor *models.User, sg *models.Suggestion) error {
	if actor.Role == models.RoleRoot {
		return nil
	}
	if sg.AuthorID != actor.ID {
		return fmt.Errorf("%w: only the author or root can delete a suggestion", ErrPermission)
	}
	if !sg.Editable() {
		return fmt.Errorf("%w: a %s suggestion can only be deleted by root", ErrPolicy, sg.Status)
	}
	return nil
}

// validateTransition checks an author-side edit transition. Terminal
// states are read-only.
func validateTransition(from, to string) error {
	allowedTransitions := map[string][]string{
		models.StatusDraft:       {models.StatusDraft, models.StatusSubmitted},
		models.StatusSubmitted:   {models.StatusDraft, models.StatusSubmitted},
		models.StatusUnderReview: {models.StatusDraft, models.StatusSubmitted},
	}

	allowed, ok := allowedTransitions[from]
	if !ok {
		return fmt.Errorf("%w: a %s suggestion is read-only", ErrPolicy, from)
	}
	for _, valid := range allowed {
		if to == valid {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot move a suggestion from %s to %s", ErrPolicy, from, to)
}

func (s *SuggestionService) audit(actorID, action, resource, details string) {
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
