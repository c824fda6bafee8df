package request

// OrderItemRequest represents one line item on a new order
type OrderItemRequest struct {
	Title     string `json:"title" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	UnitPrice int64  `json:"unit_price" binding:"required,gte=0"`
}

// CreateOrderRequest represents the request body for POST /orders
type CreateOrderRequest struct {
	Email          string             `json:"email" binding:"required,email"`
	CurrencyCode   string             `json:"currency_code,omitempty"`
	NoNotification bool               `json:"no_notification,omitempty"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}
