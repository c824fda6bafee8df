package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/enum"
)

// Order represents a sales order against which returns can be requested
type Order struct {
	ID           uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	DisplayNo    string           `gorm:"size:100;unique;not null" json:"display_no"`
	Email        string           `gorm:"size:255;not null" json:"email"`
	Status       enum.OrderStatus `gorm:"size:32;not null;default:'pending'" json:"status"`
	CurrencyCode string           `gorm:"size:3;not null;default:'usd'" json:"currency_code"`

	// NoNotification is the order-level default applied to returns whose
	// request did not override the flag.
	NoNotification bool `gorm:"default:false" json:"no_notification"`

	Total     int64          `gorm:"default:0" json:"total"` // cents
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items   []LineItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Returns []Return   `gorm:"foreignKey:OrderID" json:"returns,omitempty"`
}

// BeforeCreate generates a UUID before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// Item returns the line item with the given ID, if present.
func (o *Order) Item(itemID uuid.UUID) *LineItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// LineItem represents a purchasable line on an order
type LineItem struct {
	ID               uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	OrderID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"order_id"`
	Title            string         `gorm:"size:255;not null" json:"title"`
	Quantity         int            `gorm:"not null" json:"quantity"`
	ReturnedQuantity int            `gorm:"default:0" json:"returned_quantity"`
	UnitPrice        int64          `gorm:"not null" json:"unit_price"` // cents
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new line item
func (li *LineItem) BeforeCreate(tx *gorm.DB) error {
	if li.ID == uuid.Nil {
		li.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the LineItem model
func (LineItem) TableName() string {
	return "line_items"
}

// Returnable reports how many units can still be returned.
func (li *LineItem) Returnable() int {
	return li.Quantity - li.ReturnedQuantity
}
