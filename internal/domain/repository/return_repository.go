package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
)

// ReturnRepository defines the interface for return persistence
type ReturnRepository interface {
	// GetByID retrieves a return with its items and shipping method.
	// Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Return, error)
	// GetByIdempotencyKey retrieves the return created under an idempotency
	// token, or nil when none exists.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Return, error)
	// Create stores a new return with its items
	Create(ctx context.Context, ret *entity.Return) error
	// Save persists changes to a return and its loaded items
	Save(ctx context.Context, ret *entity.Return) error
	// ListByOrder returns all returns belonging to an order
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Return, error)
}
