package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	domainRepo "github.com/sokoflow/commerce-api/internal/domain/repository"
)

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event outbox repository
func NewEventRepository(db *gorm.DB) domainRepo.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Append(ctx context.Context, event *entity.Event) error {
	return dbFromContext(ctx, r.db).Create(event).Error
}

func (r *eventRepository) ListUnpublished(ctx context.Context, limit int) ([]entity.Event, error) {
	var events []entity.Event
	err := dbFromContext(ctx, r.db).
		Where("published_at IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *eventRepository) MarkPublished(ctx context.Context, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]interface{}, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	now := time.Now().UTC()
	return dbFromContext(ctx, r.db).
		Model(&entity.Event{}).
		Where("id IN ?", ids).
		Update("published_at", now).Error
}
