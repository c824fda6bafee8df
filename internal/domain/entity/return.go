package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/enum"
)

// Return represents a requested (and possibly received) return of line items
// from an order.
type Return struct {
	ID      uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	OrderID uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	Status  enum.ReturnStatus `gorm:"size:32;not null;default:'requested'" json:"status"`

	// IdempotencyKey tags the return with the token that created it, so a
	// later stage of the same operation can find it again.
	IdempotencyKey string `gorm:"size:255;index" json:"idempotency_key,omitempty"`

	// RefundAmount is the caller override in cents; nil means no override.
	RefundAmount *int64 `json:"refund_amount,omitempty"`

	// NoNotification overrides the order default when non-nil.
	NoNotification *bool `json:"no_notification,omitempty"`

	ReceivedAt *time.Time     `json:"received_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items          []ReturnItem    `gorm:"foreignKey:ReturnID" json:"items,omitempty"`
	ShippingMethod *ShippingMethod `gorm:"foreignKey:ReturnID" json:"shipping_method,omitempty"`
}

// BeforeCreate generates a UUID before creating a new return
func (r *Return) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Return model
func (Return) TableName() string {
	return "returns"
}

// IsReceived reports whether the return has been recorded as received.
func (r *Return) IsReceived() bool {
	return r.Status == enum.ReturnStatusReceived
}

// ReturnItem represents one line item included in a return
type ReturnItem struct {
	ID                uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ReturnID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"return_id"`
	ItemID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"item_id"`
	RequestedQuantity int        `gorm:"not null" json:"requested_quantity"`
	ReceivedQuantity  int        `gorm:"default:0" json:"received_quantity"`
	ReasonID          *uuid.UUID `gorm:"type:uuid" json:"reason_id,omitempty"`
	Note              string     `gorm:"size:512" json:"note,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// BeforeCreate generates a UUID before creating a new return item
func (ri *ReturnItem) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == uuid.Nil {
		ri.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ReturnItem model
func (ReturnItem) TableName() string {
	return "return_items"
}
