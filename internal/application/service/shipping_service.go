package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

// ShippingService resolves shipping options and attaches shipping methods to
// returns.
type ShippingService struct {
	shippingRepo repository.ShippingRepository
}

// NewShippingService creates a new shipping service
func NewShippingService(shippingRepo repository.ShippingRepository) *ShippingService {
	return &ShippingService{shippingRepo: shippingRepo}
}

// CreateReturnMethod attaches a shipping method for the given option to a
// return, using the caller's price override when provided and the option's
// listed amount otherwise.
func (s *ShippingService) CreateReturnMethod(ctx context.Context, returnID, optionID uuid.UUID, priceOverride *int64) (*entity.ShippingMethod, error) {
	option, err := s.shippingRepo.GetOptionByID(ctx, optionID)
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, apperror.NewNotFoundError("Shipping option")
	}

	price := option.Amount
	if priceOverride != nil {
		price = *priceOverride
		if price < 0 {
			price = 0
		}
	}

	method := &entity.ShippingMethod{
		ShippingOptionID: option.ID,
		ReturnID:         &returnID,
		Price:            price,
	}
	if err := s.shippingRepo.CreateMethod(ctx, method); err != nil {
		return nil, err
	}
	method.ShippingOption = *option
	return method, nil
}

// FulfillMethod stamps a shipping method as fulfilled.
func (s *ShippingService) FulfillMethod(ctx context.Context, method *entity.ShippingMethod) error {
	now := time.Now().UTC()
	method.FulfilledAt = &now
	return s.shippingRepo.SaveMethod(ctx, method)
}
