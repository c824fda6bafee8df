package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

// ReturnService performs return mutations. Every method joins the
// transaction carried by its context, so callers decide the commit scope.
type ReturnService struct {
	returnRepo   repository.ReturnRepository
	lineItemRepo repository.LineItemRepository
}

// NewReturnService creates a new return service
func NewReturnService(
	returnRepo repository.ReturnRepository,
	lineItemRepo repository.LineItemRepository,
) *ReturnService {
	return &ReturnService{
		returnRepo:   returnRepo,
		lineItemRepo: lineItemRepo,
	}
}

// ReturnItemInput represents one line item included in a return request
type ReturnItemInput struct {
	ItemID   uuid.UUID
	Quantity int
	ReasonID *uuid.UUID
	Note     string
}

// CreateReturnInput represents the create return input
type CreateReturnInput struct {
	Order          *entity.Order
	IdempotencyKey string
	Items          []ReturnItemInput
	RefundAmount   *int64
	NoNotification *bool
}

// Create validates the requested items against the order and stores the
// return aggregate tagged with its idempotency key.
func (s *ReturnService) Create(ctx context.Context, input *CreateReturnInput) (*entity.Return, error) {
	if len(input.Items) == 0 {
		return nil, apperror.NewBadRequestError("A return requires at least one item")
	}

	items := make([]entity.ReturnItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, apperror.NewBadRequestError(fmt.Sprintf("Invalid quantity for item %s", in.ItemID))
		}
		lineItem := input.Order.Item(in.ItemID)
		if lineItem == nil {
			return nil, apperror.NewNotFoundError(fmt.Sprintf("Item %s", in.ItemID))
		}
		if in.Quantity > lineItem.Returnable() {
			return nil, apperror.NewBadRequestError(fmt.Sprintf("Cannot return more items than were purchased for %s", in.ItemID))
		}
		items = append(items, entity.ReturnItem{
			ItemID:            in.ItemID,
			RequestedQuantity: in.Quantity,
			ReasonID:          in.ReasonID,
			Note:              in.Note,
		})
	}

	ret := &entity.Return{
		OrderID:        input.Order.ID,
		Status:         enum.ReturnStatusRequested,
		IdempotencyKey: input.IdempotencyKey,
		RefundAmount:   input.RefundAmount,
		NoNotification: input.NoNotification,
		Items:          items,
	}
	if err := s.returnRepo.Create(ctx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// GetByIdempotencyKey retrieves the return created under a token, or nil.
func (s *ReturnService) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Return, error) {
	return s.returnRepo.GetByIdempotencyKey(ctx, key)
}

// Receive records a requested return as received with the supplied items and
// optional refund override, and moves the returned quantities onto the
// order's line items.
func (s *ReturnService) Receive(ctx context.Context, returnID uuid.UUID, items []ReturnItemInput, refund *int64) (*entity.Return, error) {
	ret, err := s.returnRepo.GetByID(ctx, returnID)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, apperror.NewNotFoundError("Return")
	}
	if ret.Status == enum.ReturnStatusCanceled {
		return nil, apperror.NewBadRequestError("Cannot receive a canceled return")
	}
	if ret.IsReceived() {
		return nil, apperror.NewBadRequestError("Return has already been received")
	}

	requested := make(map[uuid.UUID]*entity.ReturnItem, len(ret.Items))
	for i := range ret.Items {
		requested[ret.Items[i].ItemID] = &ret.Items[i]
	}

	status := enum.ReturnStatusReceived
	for _, in := range items {
		retItem, ok := requested[in.ItemID]
		if !ok {
			return nil, apperror.NewBadRequestError(fmt.Sprintf("Item %s is not part of this return", in.ItemID))
		}
		retItem.ReceivedQuantity = in.Quantity
		// Short-shipped returns stay open for manual review.
		if in.Quantity != retItem.RequestedQuantity {
			status = enum.ReturnStatusRequiresAction
		}
	}

	now := time.Now().UTC()
	ret.Status = status
	ret.ReceivedAt = &now
	if refund != nil {
		ret.RefundAmount = refund
	}
	if err := s.returnRepo.Save(ctx, ret); err != nil {
		return nil, err
	}

	if status == enum.ReturnStatusReceived {
		if err := s.recordReturnedQuantities(ctx, ret); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func (s *ReturnService) recordReturnedQuantities(ctx context.Context, ret *entity.Return) error {
	ids := make([]uuid.UUID, 0, len(ret.Items))
	for _, item := range ret.Items {
		ids = append(ids, item.ItemID)
	}
	lineItems, err := s.lineItemRepo.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*entity.LineItem, len(lineItems))
	for i := range lineItems {
		byID[lineItems[i].ID] = &lineItems[i]
	}
	for _, item := range ret.Items {
		lineItem, ok := byID[item.ItemID]
		if !ok {
			return apperror.NewInvalidStateError(fmt.Sprintf("Line item %s missing for received return", item.ItemID))
		}
		lineItem.ReturnedQuantity += item.ReceivedQuantity
		if err := s.lineItemRepo.Save(ctx, lineItem); err != nil {
			return err
		}
	}
	return nil
}
