package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShippingOption represents an available way to ship a return
type ShippingOption struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Name      string         `gorm:"size:255;not null" json:"name"`
	Provider  string         `gorm:"size:100" json:"provider"`
	Amount    int64          `gorm:"not null" json:"amount"` // cents
	IsReturn  bool           `gorm:"default:false" json:"is_return"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate generates a UUID before creating a new shipping option
func (so *ShippingOption) BeforeCreate(tx *gorm.DB) error {
	if so.ID == uuid.Nil {
		so.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ShippingOption model
func (ShippingOption) TableName() string {
	return "shipping_options"
}

// ShippingMethod represents a shipping option applied to a concrete return,
// with an optional price override.
type ShippingMethod struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ShippingOptionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"shipping_option_id"`
	ReturnID         *uuid.UUID `gorm:"type:uuid;index" json:"return_id,omitempty"`
	Price            int64      `gorm:"not null" json:"price"` // cents
	FulfilledAt      *time.Time `json:"fulfilled_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Relationships
	ShippingOption ShippingOption `gorm:"foreignKey:ShippingOptionID" json:"shipping_option,omitempty"`
}

// BeforeCreate generates a UUID before creating a new shipping method
func (sm *ShippingMethod) BeforeCreate(tx *gorm.DB) error {
	if sm.ID == uuid.Nil {
		sm.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the ShippingMethod model
func (ShippingMethod) TableName() string {
	return "shipping_methods"
}
