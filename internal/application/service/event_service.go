package service

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
)

// EventHandler consumes a committed domain event.
type EventHandler func(event entity.Event)

// EventService is a transactional outbox event bus. Emit writes the event
// row inside the caller's transaction, so an event is only ever observable
// if the stage that produced it committed. DispatchPending relays committed
// events to in-process subscribers, at least once.
type EventService struct {
	eventRepo repository.EventRepository

	mu          sync.RWMutex
	subscribers map[string][]EventHandler
}

// NewEventService creates a new event service
func NewEventService(eventRepo repository.EventRepository) *EventService {
	return &EventService{
		eventRepo:   eventRepo,
		subscribers: make(map[string][]EventHandler),
	}
}

// Emit appends an event to the outbox within the caller's transaction.
func (s *EventService) Emit(ctx context.Context, name string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.eventRepo.Append(ctx, &entity.Event{
		Name:    name,
		Payload: string(body),
	})
}

// Subscribe registers a handler for an event name.
func (s *EventService) Subscribe(name string, handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[name] = append(s.subscribers[name], handler)
}

// DispatchPending relays committed, unpublished events to subscribers and
// marks them published. Handlers that panic are not retried here; delivery
// is at-least-once across process restarts.
func (s *EventService) DispatchPending(ctx context.Context, limit int) (int, error) {
	events, err := s.eventRepo.ListUnpublished(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	// Handlers run outside the lock so a handler may itself Subscribe
	// without deadlocking.
	s.mu.RLock()
	handlers := make(map[string][]EventHandler, len(s.subscribers))
	for name, hs := range s.subscribers {
		handlers[name] = append([]EventHandler(nil), hs...)
	}
	s.mu.RUnlock()

	for _, event := range events {
		for _, handler := range handlers[event.Name] {
			handler(event)
		}
	}

	if err := s.eventRepo.MarkPublished(ctx, events); err != nil {
		log.Printf("events: mark published: %v", err)
		return len(events), err
	}
	return len(events), nil
}
