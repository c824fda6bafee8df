package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/pkg/pagination"
)

// OrderFilterParams represents filtering options for listing orders
type OrderFilterParams struct {
	Pagination *pagination.PaginationParams
	Status     *enum.OrderStatus
	Email      string
	StartDate  *time.Time
	EndDate    *time.Time
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// GetByID retrieves an order, preloading the named relations
	// ("Items", "Returns", "Returns.Items", ...). Returns nil when absent.
	GetByID(ctx context.Context, id uuid.UUID, relations ...string) (*entity.Order, error)
	// Create stores a new order with its line items
	Create(ctx context.Context, order *entity.Order) error
	// Save persists changes to an existing order and its loaded relations
	Save(ctx context.Context, order *entity.Order) error
	// List returns a page of orders matching the filter
	List(ctx context.Context, params *OrderFilterParams) ([]entity.Order, int64, error)
}

// LineItemRepository defines the interface for line item persistence
type LineItemRepository interface {
	// GetByIDs retrieves line items by ID in one query
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LineItem, error)
	// Save persists changes to a line item
	Save(ctx context.Context, item *entity.LineItem) error
}
