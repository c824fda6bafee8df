package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
)

// ShippingRepository defines the interface for shipping option/method
// persistence
type ShippingRepository interface {
	// GetOptionByID retrieves a shipping option, or nil when absent
	GetOptionByID(ctx context.Context, id uuid.UUID) (*entity.ShippingOption, error)
	// CreateMethod stores a shipping method attached to a return
	CreateMethod(ctx context.Context, method *entity.ShippingMethod) error
	// SaveMethod persists changes to a shipping method
	SaveMethod(ctx context.Context, method *entity.ShippingMethod) error
}
