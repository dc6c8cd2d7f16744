package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

var ErrSuggestionNotFound = errors.New("suggestion not found")

func suggestionSchema() store.Schema {
	return store.Schema{
		Name: "suggestions",
		Columns: []store.Column{
			{Name: "id"},
			{Name: "author_id"},
			{Name: "author_name"},
			{Name: "created_on", Aliases: []string{"date"}},
			{Name: "title"},
			{Name: "body"},
			{Name: "attachment"},
			{Name: "status", Default: models.StatusDraft},
			{Name: "grade"},
			{Name: "points", Default: "0", Aliases: []string{"score"}},
			{Name: "score_total", Default: "0"},
		},
	}
}

// SuggestionRepository maps the suggestion table to typed records and
// normalizes legacy labels on the way out.
type SuggestionRepository struct {
	store store.Store
}

// NewSuggestionRepository creates a new suggestion repository.
func NewSuggestionRepository(s store.Store) *SuggestionRepository {
	return &SuggestionRepository{store: s}
}

// All returns every suggestion in table order.
func (r *SuggestionRepository) All() ([]models.Suggestion, error) {
	t, err := r.store.Load(suggestionSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}
	out := make([]models.Suggestion, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, rowToSuggestion(row))
	}
	return out, nil
}

// ForAuthor returns the author's suggestions in table order.
func (r *SuggestionRepository) ForAuthor(authorID string) ([]models.Suggestion, error) {
	all, err := r.All()
	if err != nil {
		return nil, err
	}
	var mine []models.Suggestion
	for _, s := range all {
		if s.AuthorID == authorID {
			mine = append(mine, s)
		}
	}
	return mine, nil
}

// Get retrieves a suggestion by id.
func (r *SuggestionRepository) Get(id string) (*models.Suggestion, error) {
	t, err := r.store.Load(suggestionSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}
	i := t.FindIndex("id", id)
	if i < 0 {
		return nil, ErrSuggestionNotFound
	}
	s := rowToSuggestion(t.Rows[i])
	return &s, nil
}

// Create appends a new suggestion, assigning a timestamp-derived id.
// On a same-second collision the id is bumped to the next free second.
func (r *SuggestionRepository) Create(s *models.Suggestion, now time.Time) error {
	return r.store.Update(suggestionSchema(), func(t *store.Table) error {
		for {
			id := now.Format("20060102150405")
			if t.FindIndex("id", id) < 0 {
				s.ID = id
				break
			}
			now = now.Add(time.Second)
		}
		t.Append(suggestionToRow(s))
		return nil
	})
}

// Mutate runs fn on the stored record under the table's write lock and
// persists the result. fn sees the normalized record; returning an
// error aborts without writing.
func (r *SuggestionRepository) Mutate(id string, fn func(*models.Suggestion) error) error {
	return r.store.Update(suggestionSchema(), func(t *store.Table) error {
		i := t.FindIndex("id", id)
		if i < 0 {
			return ErrSuggestionNotFound
		}
		s := rowToSuggestion(t.Rows[i])
		if err := fn(&s); err != nil {
			return err
		}
		t.Rows[i] = suggestionToRow(&s)
		return nil
	})
}

// Delete removes a suggestion outright.
func (r *SuggestionRepository) Delete(id string) error {
	return r.store.Update(suggestionSchema(), func(t *store.Table) error {
		i := t.FindIndex("id", id)
		if i < 0 {
			return ErrSuggestionNotFound
		}
		t.DeleteIndex(i)
		return nil
	})
}

func rowToSuggestion(row store.Row) models.Suggestion {
	return models.Suggestion{
		ID:         row.Get("id"),
		AuthorID:   row.Get("author_id"),
		AuthorName: row.Get("author_name"),
		CreatedOn:  row.Get("created_on"),
		Title:      row.Get("title"),
		Body:       row.Get("body"),
		Attachment: row.Get("attachment"),
		Status:     normalizeStatus(row.Get("status")),
		Grade:      NormalizeGrade(row.Get("grade")),
		Points:     store.AsInt(row.Get("points")),
		ScoreTotal: store.AsInt(row.Get("score_total")),
	}
}

func suggestionToRow(s *models.Suggestion) store.Row {
	return store.Row{
		"id":          s.ID,
		"author_id":   s.AuthorID,
		"author_name": s.AuthorName,
		"created_on":  s.CreatedOn,
		"title":       s.Title,
		"body":        s.Body,
		"attachment":  s.Attachment,
		"status":      s.Status,
		"grade":       s.Grade,
		"points":      strconv.Itoa(s.Points),
		"score_total": strconv.Itoa(s.ScoreTotal),
	}
}

// normalizeStatus folds the legacy "returned" label into rejected.
func normalizeStatus(status string) string {
	if status == models.StatusReturned {
		return models.StatusRejected
	}
	return status
}

// NormalizeGrade maps legacy tier-style grade labels onto the S/A/B/C
// scale and strips decorations around the letter. Unknown values pass
// through untouched.
func NormalizeGrade(grade string) string {
	g := strings.TrimSpace(grade)
	if g == "" {
		return ""
	}
	switch {
	case strings.Contains(g, "gold"):
		return models.GradeS
	case strings.Contains(g, "silver"):
		return models.GradeA
	case strings.Contains(g, "bronze"):
		return models.GradeB
	case strings.Contains(g, "participation"):
		return models.GradeC
	case strings.Contains(g, models.GradeS):
		return models.GradeS
	case strings.Contains(g, models.GradeA):
		return models.GradeA
	case strings.Contains(g, models.GradeB):
		return models.GradeB
	case strings.Contains(g, models.GradeC):
		return models.GradeC
	}
	return g
}
