package repository

import (
	"context"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
)

// EventRepository is the persistence side of the transactional outbox.
// Append runs inside the emitting stage's transaction so an event row is
// only visible once the stage committed.
type EventRepository interface {
	// Append stores an event row
	Append(ctx context.Context, event *entity.Event) error
	// ListUnpublished returns committed events not yet relayed, oldest first
	ListUnpublished(ctx context.Context, limit int) ([]entity.Event, error)
	// MarkPublished stamps events as relayed
	MarkPublished(ctx context.Context, events []entity.Event) error
}
