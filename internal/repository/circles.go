package repository

import (
	"fmt"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

func circleSchema() store.Schema {
	return store.Schema{
		Name: "circle_activities",
		Columns: []store.Column{
			{Name: "id"},
			{Name: "author_id"},
			{Name: "author_name"},
			{Name: "created_on", Aliases: []string{"date"}},
			{Name: "team_name"},
			{Name: "body"},
			{Name: "attachment"},
			{Name: "status", Default: models.StatusSubmitted},
		},
	}
}

// CircleRepository maps the circle activity table to typed records.
type CircleRepository struct {
	store store.Store
}

// NewCircleRepository creates a new circle activity repository.
func NewCircleRepository(s store.Store) *CircleRepository {
	return &CircleRepository{store: s}
}

// All returns every activity in table order.
func (r *CircleRepository) All() ([]models.CircleActivity, error) {
	t, err := r.store.Load(circleSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load circle activities: %w", err)
	}
	out := make([]models.CircleActivity, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, models.CircleActivity{
			ID:         row.Get("id"),
			AuthorID:   row.Get("author_id"),
			AuthorName: row.Get("author_name"),
			CreatedOn:  row.Get("created_on"),
			TeamName:   row.Get("team_name"),
			Body:       row.Get("body"),
			Attachment: row.Get("attachment"),
			Status:     row.Get("status"),
		})
	}
	return out, nil
}

// Create appends a new activity with a timestamp-derived id.
func (r *CircleRepository) Create(a *models.CircleActivity, now time.Time) error {
	return r.store.Update(circleSchema(), func(t *store.Table) error {
		for {
			id := now.Format("20060102150405")
			if t.FindIndex("id", id) < 0 {
				a.ID = id
				break
			}
			now = now.Add(time.Second)
		}
		t.Append(store.Row{
			"id":          a.ID,
			"author_id":   a.AuthorID,
			"author_name": a.AuthorName,
			"created_on":  a.CreatedOn,
			"team_name":   a.TeamName,
			"body":        a.Body,
			"attachment":  a.Attachment,
			"status":      a.Status,
		})
		return nil
	})
}
