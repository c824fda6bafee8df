package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
)

type shippingRepository struct {
	db *gorm.DB
}

// NewShippingRepository creates a new shipping repository
func NewShippingRepository(db *gorm.DB) domainRepo.ShippingRepository {
	return &shippingRepository{db: db}
}

func (r *shippingRepository) GetOptionByID(ctx context.Context, id uuid.UUID) (*entity.ShippingOption, error) {
	var option entity.ShippingOption
	err := dbFromContext(ctx, r.db).First(&option, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *shippingRepository) CreateMethod(ctx context.Context, method *entity.ShippingMethod) error {
	return dbFromContext(ctx, r.db).Create(method).Error
}

func (r *shippingRepository) SaveMethod(ctx context.Context, method *entity.ShippingMethod) error {
	return dbFromContext(ctx, r.db).Save(method).Error
}
