package repository

import (
	"errors"
	"fmt"
	"time"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

var ErrSessionNotFound = errors.New("session not found")

func sessionSchema() store.Schema {
	return store.Schema{
		Name: "sessions",
		Columns: []store.Column{
			{Name: "jti"},
			{Name: "user_id"},
			{Name: "expires_at"},
			{Name: "created_at"},
			{Name: "ip_address"},
			{Name: "user_agent"},
		},
	}
}

// SessionRepository persists login sessions keyed by the token's JTI.
type SessionRepository struct {
	store store.Store
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(s store.Store) *SessionRepository {
	return &SessionRepository{store: s}
}

// Create appends a new session row.
func (r *SessionRepository) Create(s *models.Session) error {
	return r.store.Update(sessionSchema(), func(t *store.Table) error {
		t.Append(sessionToRow(s))
		return nil
	})
}

// GetByJTI looks up a session by token id.
func (r *SessionRepository) GetByJTI(jti string) (*models.Session, error) {
	t, err := r.store.Load(sessionSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	i := t.FindIndex("jti", jti)
	if i < 0 {
		return nil, ErrSessionNotFound
	}
	s := rowToSession(t.Rows[i])
	return &s, nil
}

// Delete removes a single session. Deleting a missing session is not an
// error; logout is idempotent.
func (r *SessionRepository) Delete(jti string) error {
	return r.store.Update(sessionSchema(), func(t *store.Table) error {
		if i := t.FindIndex("jti", jti); i >= 0 {
			t.DeleteIndex(i)
		}
		return nil
	})
}

// DeleteForUser removes every session belonging to a user, revoking all
// of their outstanding tokens at once.
func (r *SessionRepository) DeleteForUser(userID string) error {
	return r.store.Update(sessionSchema(), func(t *store.Table) error {
		kept := t.Rows[:0]
		for _, row := range t.Rows {
			if row.Get("user_id") != userID {
				kept = append(kept, row)
			}
		}
		t.Rows = kept
		return nil
	})
}

// DeleteExpired removes sessions past their expiry and returns how many
// were swept.
func (r *SessionRepository) DeleteExpired(now time.Time) (int, error) {
	removed := 0
	err := r.store.Update(sessionSchema(), func(t *store.Table) error {
		kept := t.Rows[:0]
		for _, row := range t.Rows {
			exp := store.AsTime(row.Get("expires_at"))
			if !exp.IsZero() && exp.Before(now) {
				removed++
				continue
			}
			kept = append(kept, row)
		}
		t.Rows = kept
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func rowToSession(row store.Row) models.Session {
	return models.Session{
		JTI:       row.Get("jti"),
		UserID:    row.Get("user_id"),
		ExpiresAt: store.AsTime(row.Get("expires_at")),
		CreatedAt: store.AsTime(row.Get("created_at")),
		IPAddress: row.Get("ip_address"),
		UserAgent: row.Get("user_agent"),
	}
}

func sessionToRow(s *models.Session) store.Row {
	return store.Row{
		"jti":        s.JTI,
		"user_id":    s.UserID,
		"expires_at": s.ExpiresAt.Format(store.TimeLayout),
		"created_at": s.CreatedAt.Format(store.TimeLayout),
		"ip_address": s.IPAddress,
		"user_agent": s.UserAgent,
	}
}
