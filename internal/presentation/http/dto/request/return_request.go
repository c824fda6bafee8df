package request

// ReturnItemRequest represents one item in a return request
type ReturnItemRequest struct {
	ItemID   string  `json:"item_id" binding:"required,uuid"`
	Quantity int     `json:"quantity" binding:"required,gt=0"`
	ReasonID *string `json:"reason_id,omitempty" binding:"omitempty,uuid"`
	Note     string  `json:"note,omitempty"`
}

// ReturnShippingRequest represents the optional return-shipping selection
type ReturnShippingRequest struct {
	OptionID *string `json:"option_id,omitempty" binding:"omitempty,uuid"`
	Price    *int64  `json:"price,omitempty"`
}

// CreateReturnRequest represents the request body for POST /orders/:id/returns
type CreateReturnRequest struct {
	Items          []ReturnItemRequest    `json:"items" binding:"required,min=1,dive"`
	ReturnShipping *ReturnShippingRequest `json:"return_shipping,omitempty"`
	ReceiveNow     bool                   `json:"receive_now,omitempty"`
	NoNotification *bool                  `json:"no_notification,omitempty"`
	Refund         *int64                 `json:"refund,omitempty"`
}
