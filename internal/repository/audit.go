package repository

import (
	"fmt"

	"tpm-hub/internal/models"
	"tpm-hub/internal/store"
)

func auditSchema() store.Schema {
	return store.Schema{
		Name: "audit_log",
		Columns: []store.Column{
			{Name: "created_at"},
			{Name: "actor_id"},
			{Name: "action"},
			{Name: "resource"},
			{Name: "details"},
			{Name: "ip_address"},
		},
	}
}

// AuditRepository appends mutation records to the audit trail.
type AuditRepository struct {
	store store.Store
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(s store.Store) *AuditRepository {
	return &AuditRepository{store: s}
}

// Append writes one audit entry.
func (r *AuditRepository) Append(e *models.AuditEntry) error {
	return r.store.Update(auditSchema(), func(t *store.Table) error {
		t.Append(store.Row{
			"created_at": e.CreatedAt.Format(store.TimeLayout),
			"actor_id":   e.ActorID,
			"action":     e.Action,
			"resource":   e.Resource,
			"details":    e.Details,
			"ip_address": e.IPAddress,
		})
		return nil
	})
}

// All returns the audit trail in append order.
func (r *AuditRepository) All() ([]models.AuditEntry, error) {
	t, err := r.store.Load(auditSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to load audit log: %w", err)
	}
	out := make([]models.AuditEntry, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, models.AuditEntry{
			CreatedAt: store.AsTime(row.Get("created_at")),
			ActorID:   row.Get("actor_id"),
			Action:    row.Get("action"),
			Resource:  row.Get("resource"),
			Details:   row.Get("details"),
			IPAddress: row.Get("ip_address"),
		})
	}
	return out, nil
}
