package store

import (
	"context"

	"github.com/google/uuid"

	"publink/internal/link/models"
)

// LinkStore persists links. Implementations return sentinel errors; services
// translate them into domain errors.
type LinkStore interface {
	// Create inserts the link unless the short code is taken; returns
	// sentinel.ErrConflict when it is.
	Create(ctx context.Context, l *models.Link) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Link, error)
	FindByShortCode(ctx context.Context, shortCode string) (*models.Link, error)
	Update(ctx context.Context, l *models.Link) error
	// IncrementClickCount bumps the counter without read-modify-write so
	// concurrent redirects never lose clicks.
	IncrementClickCount(ctx context.Context, id uuid.UUID) error
}

// RuleStore persists routing rules.
type RuleStore interface {
	// ListByLink returns the link's rules ordered by priority descending,
	// insertion order on ties.
	ListByLink(ctx context.Context, linkID uuid.UUID) ([]models.RoutingRule, error)
	// ReplaceForLink swaps a link's entire rule set atomically; Position is
	// assigned from slice order.
	ReplaceForLink(ctx context.Context, linkID uuid.UUID, rules []models.RoutingRule) error
}
