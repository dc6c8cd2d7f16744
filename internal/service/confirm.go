package service

import (
	"fmt"
	"sync"
	"time"

	"tpm-hub/internal/auth"
)

// Confirmation kinds. A token minted for one kind cannot confirm
// another.
const (
	ConfirmRecall     = "recall"
	ConfirmDelete     = "delete"
	ConfirmBulkDelete = "bulk_delete"
)

type pendingConfirmation struct {
	kind      string
	actorID   string
	payload   any
	expiresAt time.Time
}

// ConfirmationBroker models two-step destructive flows as an explicit
// pending-token state machine: Begin marks the action and returns a
// token, Take redeems it exactly once. Tokens are bound to one kind and
// one actor and expire after the TTL.
type ConfirmationBroker struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]pendingConfirmation
}

// NewConfirmationBroker creates a broker with the given token TTL.
func NewConfirmationBroker(ttl time.Duration) *ConfirmationBroker {
	return &ConfirmationBroker{
		ttl:     ttl,
		pending: make(map[string]pendingConfirmation),
	}
}

// Begin records a pending action and returns its confirmation token.
func (b *ConfirmationBroker) Begin(kind, actorID string, payload any) (string, error) {
	token, err := auth.GenerateRandomToken(16)
	if err != nil {
		return "", fmt.Errorf("failed to mint confirmation token: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending[token] = pendingConfirmation{
		kind:      kind,
		actorID:   actorID,
		payload:   payload,
		expiresAt: time.Now().Add(b.ttl),
	}
	return token, nil
}

// Take redeems a token, returning the payload recorded at Begin. The
// token must match kind and actor and be unexpired; it is consumed
// either way once found, so a token never confirms twice.
func (b *ConfirmationBroker) Take(token, kind, actorID string) (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown confirmation token", ErrNotFound)
	}
	delete(b.pending, token)

	if time.Now().After(p.expiresAt) {
		return nil, fmt.Errorf("%w: confirmation token expired", ErrNotFound)
	}
	if p.kind != kind || p.actorID != actorID {
		return nil, fmt.Errorf("%w: confirmation token does not match this action", ErrPermission)
	}
	return p.payload, nil
}

// Cancel drops a pending confirmation if it exists.
func (b *ConfirmationBroker) Cancel(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, token)
}

// SweepExpired drops expired confirmations and returns how many were
// removed. Called periodically by the scheduler.
func (b *ConfirmationBroker) SweepExpired(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for token, p := range b.pending {
		if now.After(p.expiresAt) {
			delete(b.pending, token)
			removed++
		}
	}
	return removed
}
