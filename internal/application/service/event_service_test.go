package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/infrastructure/repository/memory"
)

func TestEventService_EmitAndDispatch(t *testing.T) {
	store := memory.NewStore()
	events := NewEventService(memory.NewEventRepository(store))

	var delivered []entity.Event
	events.Subscribe("order.return_requested", func(event entity.Event) {
		delivered = append(delivered, event)
	})

	err := events.Emit(context.Background(), "order.return_requested", map[string]interface{}{"order_id": "o-1"})
	require.NoError(t, err)

	n, err := events.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, delivered, 1)
	assert.Equal(t, "order.return_requested", delivered[0].Name)
	assert.Contains(t, delivered[0].Payload, `"order_id":"o-1"`)

	// Everything dispatched is marked published and not redelivered.
	n, err = events.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Len(t, delivered, 1)
}

func TestEventService_DispatchSkipsUnsubscribedNames(t *testing.T) {
	store := memory.NewStore()
	events := NewEventService(memory.NewEventRepository(store))

	require.NoError(t, events.Emit(context.Background(), "order.archived", nil))

	// No subscriber: the event is still drained from the outbox.
	n, err := events.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = events.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestEventService_HandlerMaySubscribeDuringDispatch(t *testing.T) {
	store := memory.NewStore()
	events := NewEventService(memory.NewEventRepository(store))

	var received []string
	events.Subscribe("order.return_requested", func(event entity.Event) {
		// Registering from inside a handler must not block dispatch.
		events.Subscribe("order.return_received", func(event entity.Event) {
			received = append(received, event.Name)
		})
	})

	require.NoError(t, events.Emit(context.Background(), "order.return_requested", nil))

	n, err := events.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The subscription made during dispatch sees later events.
	require.NoError(t, events.Emit(context.Background(), "order.return_received", nil))
	_, err = events.DispatchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"order.return_received"}, received)
}
