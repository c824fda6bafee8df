package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/pagination"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID, relations ...string) (*entity.Order, error) {
	query := dbFromContext(ctx, r.db)
	for _, rel := range relations {
		query = query.Preload(rel)
	}

	var order entity.Order
	err := query.First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return dbFromContext(ctx, r.db).Create(order).Error
}

func (r *orderRepository) Save(ctx context.Context, order *entity.Order) error {
	return dbFromContext(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: true}).Save(order).Error
}

func (r *orderRepository) List(ctx context.Context, params *domainRepo.OrderFilterParams) ([]entity.Order, int64, error) {
	db := dbFromContext(ctx, r.db)
	query := db.Model(&entity.Order{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Email != "" {
		query = query.Where("email = ?", params.Email)
	}
	if params.StartDate != nil {
		query = query.Where("created_at >= ?", *params.StartDate)
	}
	if params.EndDate != nil {
		query = query.Where("created_at <= ?", *params.EndDate)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Pagination
	if page == nil {
		page = pagination.DefaultPagination()
	}
	page.Validate()

	var orders []entity.Order
	err := query.
		Preload("Items").
		Preload("Returns").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

type lineItemRepository struct {
	db *gorm.DB
}

// NewLineItemRepository creates a new line item repository
func NewLineItemRepository(db *gorm.DB) domainRepo.LineItemRepository {
	return &lineItemRepository{db: db}
}

func (r *lineItemRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LineItem, error) {
	var items []entity.LineItem
	err := dbFromContext(ctx, r.db).
		Where("id IN ?", ids).
		Find(&items).Error
	return items, err
}

func (r *lineItemRepository) Save(ctx context.Context, item *entity.LineItem) error {
	return dbFromContext(ctx, r.db).Save(item).Error
}
