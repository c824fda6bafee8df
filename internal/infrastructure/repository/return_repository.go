package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
)

type returnRepository struct {
	db *gorm.DB
}

// NewReturnRepository creates a new return repository
func NewReturnRepository(db *gorm.DB) domainRepo.ReturnRepository {
	return &returnRepository{db: db}
}

func (r *returnRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Return, error) {
	var ret entity.Return
	err := dbFromContext(ctx, r.db).
		Preload("Items").
		Preload("ShippingMethod").
		Preload("ShippingMethod.ShippingOption").
		First(&ret, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Return, error) {
	var ret entity.Return
	err := dbFromContext(ctx, r.db).
		Preload("Items").
		Preload("ShippingMethod").
		Where("idempotency_key = ?", key).
		First(&ret).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *returnRepository) Create(ctx context.Context, ret *entity.Return) error {
	return dbFromContext(ctx, r.db).Create(ret).Error
}

func (r *returnRepository) Save(ctx context.Context, ret *entity.Return) error {
	return dbFromContext(ctx, r.db).Session(&gorm.Session{FullSaveAssociations: true}).Save(ret).Error
}

func (r *returnRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Return, error) {
	var returns []entity.Return
	err := dbFromContext(ctx, r.db).
		Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&returns).Error
	return returns, err
}
