package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a transactional outbox row. Domain events are written inside the
// same transaction as the writes they describe and relayed to subscribers
// after commit, so an emitted event never outlives a rolled-back stage.
type Event struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Name        string     `gorm:"size:255;not null;index" json:"name"`
	Payload     string     `gorm:"type:text" json:"payload"`
	PublishedAt *time.Time `gorm:"index" json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BeforeCreate generates a UUID before creating a new event
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Event model
func (Event) TableName() string {
	return "events"
}
