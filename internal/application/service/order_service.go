package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
	"github.com/sokoflow/commerce-api/pkg/pagination"
	"github.com/sokoflow/commerce-api/pkg/utils"
)

// orderProjection is the relation set loaded for the public order payload.
var orderProjection = []string{
	"Items",
	"Returns",
	"Returns.Items",
	"Returns.ShippingMethod",
	"Returns.ShippingMethod.ShippingOption",
}

// OrderService handles order-related operations
type OrderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService creates a new order service
func NewOrderService(orderRepo repository.OrderRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo}
}

// GetOrder retrieves an order with its line items loaded
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id, "Items")
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// GetOrderProjection retrieves an order with the full public relation set:
// items, returns with their items and shipping methods.
func (s *OrderService) GetOrderProjection(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id, orderProjection...)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// OrderItemInput represents a line item on a new order
type OrderItemInput struct {
	Title     string
	Quantity  int
	UnitPrice int64
}

// CreateOrderInput represents the create order input
type CreateOrderInput struct {
	Email          string
	CurrencyCode   string
	NoNotification bool
	Items          []OrderItemInput
}

// CreateOrder creates a new order with its line items
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*entity.Order, error) {
	if len(input.Items) == 0 {
		return nil, apperror.NewBadRequestError("An order requires at least one item")
	}

	var total int64
	items := make([]entity.LineItem, 0, len(input.Items))
	for _, in := range input.Items {
		if in.Quantity <= 0 {
			return nil, apperror.NewBadRequestError("Item quantity must be positive")
		}
		total += in.UnitPrice * int64(in.Quantity)
		items = append(items, entity.LineItem{
			Title:     in.Title,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
		})
	}

	currency := input.CurrencyCode
	if currency == "" {
		currency = "usd"
	}

	order := &entity.Order{
		DisplayNo:      utils.GenerateDisplayNo("ORD"),
		Email:          input.Email,
		CurrencyCode:   currency,
		NoNotification: input.NoNotification,
		Total:          total,
		Items:          items,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns a page of orders matching the filter
func (s *OrderService) ListOrders(ctx context.Context, params *repository.OrderFilterParams) (*pagination.PaginatedResult[entity.Order], error) {
	if params == nil {
		params = &repository.OrderFilterParams{}
	}
	if params.Pagination == nil {
		params.Pagination = pagination.DefaultPagination()
	}
	params.Pagination.Validate()

	orders, total, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return pagination.NewPaginatedResult(orders, params.Pagination.Page, params.Pagination.PerPage, total), nil
}
