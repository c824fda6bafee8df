package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/internal/infrastructure/repository/memory"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

type flowEnv struct {
	store   *memory.Store
	keyRepo repository.IdempotencyRepository
	keys    *IdempotencyService
	orders  *OrderService
	returns *ReturnService
	flow    *ReturnFlow

	order *entity.Order
}

// flakyOrderRepo fails the nth GetByID call to simulate a crash between
// stages.
type flakyOrderRepo struct {
	repository.OrderRepository
	failOnGet int
	getCalls  int
}

func (f *flakyOrderRepo) GetByID(ctx context.Context, id uuid.UUID, relations ...string) (*entity.Order, error) {
	f.getCalls++
	if f.getCalls == f.failOnGet {
		return nil, errors.New("connection reset by peer")
	}
	return f.OrderRepository.GetByID(ctx, id, relations...)
}

func newFlowEnv(t *testing.T, wrapOrders func(repository.OrderRepository) repository.OrderRepository) *flowEnv {
	t.Helper()

	store := memory.NewStore()
	var orderRepo repository.OrderRepository = memory.NewOrderRepository(store)
	if wrapOrders != nil {
		orderRepo = wrapOrders(orderRepo)
	}

	keyRepo := memory.NewIdempotencyRepository(store)
	keys := NewIdempotencyService(keyRepo, memory.Scope{}, time.Minute)
	orders := NewOrderService(orderRepo)
	returns := NewReturnService(memory.NewReturnRepository(store), memory.NewLineItemRepository(store))
	shipping := NewShippingService(memory.NewShippingRepository(store))
	events := NewEventService(memory.NewEventRepository(store))

	flow, err := NewReturnFlow(keys, orders, returns, shipping, events)
	require.NoError(t, err)

	order, err := orders.CreateOrder(context.Background(), &CreateOrderInput{
		Email: "jane@example.com",
		Items: []OrderItemInput{
			{Title: "Espresso Grinder", Quantity: 2, UnitPrice: 12000},
			{Title: "Filter Papers", Quantity: 1, UnitPrice: 500},
		},
	})
	require.NoError(t, err)

	return &flowEnv{
		store:   store,
		keyRepo: keyRepo,
		keys:    keys,
		orders:  orders,
		returns: returns,
		flow:    flow,
		order:   order,
	}
}

func (e *flowEnv) input(items ...ReturnItemInput) *ReturnRequestInput {
	return &ReturnRequestInput{OrderID: e.order.ID, Items: items}
}

func decodeOrderPayload(t *testing.T, rec *entity.IdempotencyKey) *entity.Order {
	t.Helper()
	var payload struct {
		Order *entity.Order `json:"order"`
	}
	require.NoError(t, json.Unmarshal([]byte(rec.ResponseBody), &payload))
	require.NotNil(t, payload.Order)
	return payload.Order
}

func TestReturnFlow_Execute_CreatesReturnOnce(t *testing.T) {
	env := newFlowEnv(t, nil)

	rec, err := env.flow.Execute(context.Background(), "", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1},
	))
	require.NoError(t, err)

	assert.True(t, rec.IsFinished())
	assert.Equal(t, http.StatusOK, rec.ResponseCode)
	assert.NotEmpty(t, rec.Key)

	order := decodeOrderPayload(t, rec)
	require.Len(t, order.Returns, 1)
	assert.Equal(t, enum.ReturnStatusRequested, order.Returns[0].Status)
	assert.Nil(t, order.Returns[0].ReceivedAt)
	require.Len(t, order.Returns[0].Items, 1)
	assert.Equal(t, 1, order.Returns[0].Items[0].RequestedQuantity)

	assert.Equal(t, 1, env.store.ReturnCount())
	events := env.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventReturnRequested, events[0].Name)
}

func TestReturnFlow_Execute_ReplaysCachedResponse(t *testing.T) {
	env := newFlowEnv(t, nil)
	in := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1})

	first, err := env.flow.Execute(context.Background(), "tok-1", in)
	require.NoError(t, err)

	second, err := env.flow.Execute(context.Background(), "tok-1", in)
	require.NoError(t, err)

	assert.Equal(t, first.ResponseCode, second.ResponseCode)
	assert.Equal(t, first.ResponseBody, second.ResponseBody)
	assert.Equal(t, 1, env.store.ReturnCount(), "no second return was created")
	assert.Len(t, env.store.Events(), 1, "no second event was emitted")
}

func TestReturnFlow_Execute_FinishedKeyIgnoresChangedBody(t *testing.T) {
	env := newFlowEnv(t, nil)

	first, err := env.flow.Execute(context.Background(), "tok-1", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1},
	))
	require.NoError(t, err)

	// Same key, different body: the cached response wins, nothing re-runs.
	second, err := env.flow.Execute(context.Background(), "tok-1", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 2},
	))
	require.NoError(t, err)

	assert.Equal(t, first.ResponseBody, second.ResponseBody)
	assert.Equal(t, 1, env.store.ReturnCount())

	order := decodeOrderPayload(t, second)
	assert.Equal(t, 1, order.Returns[0].Items[0].RequestedQuantity)
}

func TestReturnFlow_Execute_RejectsKeyReuseAcrossOrders(t *testing.T) {
	env := newFlowEnv(t, nil)

	_, err := env.flow.Execute(context.Background(), "tok-1", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1},
	))
	require.NoError(t, err)

	other := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1})
	other.OrderID = uuid.New()
	_, err = env.flow.Execute(context.Background(), "tok-1", other)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrMismatchedRequest))
	assert.Equal(t, 1, env.store.ReturnCount())
}

func TestReturnFlow_Execute_ResumesAfterCrashBetweenStages(t *testing.T) {
	var flaky *flakyOrderRepo
	env := newFlowEnv(t, func(inner repository.OrderRepository) repository.OrderRepository {
		// The first stage reads the order once; the second stage's read is
		// call two and fails, simulating a crash after the first commit.
		flaky = &flakyOrderRepo{OrderRepository: inner, failOnGet: 2}
		return flaky
	})
	in := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1})

	_, err := env.flow.Execute(context.Background(), "tok-1", in)
	require.Error(t, err)

	stored, err := env.keyRepo.GetByKey(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, enum.RecoveryPointReturnRequested, stored.RecoveryPoint)
	assert.Nil(t, stored.LockedAt)
	assert.Equal(t, 1, env.store.ReturnCount(), "first stage committed")

	rec, err := env.flow.Execute(context.Background(), "tok-1", in)
	require.NoError(t, err)

	assert.True(t, rec.IsFinished())
	assert.Equal(t, http.StatusOK, rec.ResponseCode)
	assert.Equal(t, 1, env.store.ReturnCount(), "retry did not create a second return")
	assert.Len(t, env.store.Events(), 1, "retry did not re-emit the event")
}

func TestReturnFlow_Execute_RejectsConcurrentExecution(t *testing.T) {
	env := newFlowEnv(t, nil)

	rec := initKeyFor(t, env, "busy-tok")
	_, err := env.keyRepo.AcquireLock(context.Background(), rec.Key, time.Minute)
	require.NoError(t, err)

	_, err = env.flow.Execute(context.Background(), "busy-tok", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrIdempotencyLocked))
	assert.Equal(t, 0, env.store.ReturnCount())
}

func initKeyFor(t *testing.T, env *flowEnv, key string) *entity.IdempotencyKey {
	t.Helper()
	rec, err := env.keys.InitializeRequest(context.Background(), key, http.MethodPost, "/orders/:id/returns", map[string]string{"id": env.order.ID.String()})
	require.NoError(t, err)
	return rec
}

func TestReturnFlow_Execute_ReceiveNow(t *testing.T) {
	env := newFlowEnv(t, nil)

	in := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 2})
	in.ReceiveNow = true

	rec, err := env.flow.Execute(context.Background(), "", in)
	require.NoError(t, err)
	require.True(t, rec.IsFinished())

	order := decodeOrderPayload(t, rec)
	require.Len(t, order.Returns, 1)
	assert.Equal(t, enum.ReturnStatusReceived, order.Returns[0].Status)
	assert.NotNil(t, order.Returns[0].ReceivedAt)

	item := order.Item(env.order.Items[0].ID)
	require.NotNil(t, item)
	assert.Equal(t, 2, item.ReturnedQuantity)
	assert.Equal(t, 0, item.Returnable())
}

func TestReturnFlow_Execute_NegativeRefundClampedToZero(t *testing.T) {
	env := newFlowEnv(t, nil)

	in := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1})
	in.Refund = int64Ptr(-5)

	rec, err := env.flow.Execute(context.Background(), "", in)
	require.NoError(t, err)

	order := decodeOrderPayload(t, rec)
	require.Len(t, order.Returns, 1)
	require.NotNil(t, order.Returns[0].RefundAmount)
	assert.Equal(t, int64(0), *order.Returns[0].RefundAmount)
}

func TestReturnFlow_Execute_OmittedRefundStaysNil(t *testing.T) {
	env := newFlowEnv(t, nil)

	rec, err := env.flow.Execute(context.Background(), "", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1},
	))
	require.NoError(t, err)

	order := decodeOrderPayload(t, rec)
	require.Len(t, order.Returns, 1)
	assert.Nil(t, order.Returns[0].RefundAmount)
}

func TestReturnFlow_Execute_AttachesReturnShipping(t *testing.T) {
	env := newFlowEnv(t, nil)

	option := entity.ShippingOption{ID: uuid.New(), Name: "Return by mail", Amount: 500, IsReturn: true}
	env.store.SeedShippingOption(option)

	in := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1})
	in.ReturnShipping = &ReturnShippingInput{OptionID: &option.ID}

	rec, err := env.flow.Execute(context.Background(), "", in)
	require.NoError(t, err)

	order := decodeOrderPayload(t, rec)
	require.Len(t, order.Returns, 1)
	method := order.Returns[0].ShippingMethod
	require.NotNil(t, method)
	assert.Equal(t, option.ID, method.ShippingOptionID)
	assert.Equal(t, int64(500), method.Price)
	assert.NotNil(t, method.FulfilledAt)
}

func TestReturnFlow_Execute_ShippingPriceOverride(t *testing.T) {
	env := newFlowEnv(t, nil)

	option := entity.ShippingOption{ID: uuid.New(), Name: "Return by mail", Amount: 500, IsReturn: true}
	env.store.SeedShippingOption(option)

	in := env.input(ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 1})
	in.ReturnShipping = &ReturnShippingInput{OptionID: &option.ID, Price: int64Ptr(250)}

	rec, err := env.flow.Execute(context.Background(), "", in)
	require.NoError(t, err)

	order := decodeOrderPayload(t, rec)
	require.NotNil(t, order.Returns[0].ShippingMethod)
	assert.Equal(t, int64(250), order.Returns[0].ShippingMethod.Price)
}

func TestReturnFlow_Execute_UnknownOrder(t *testing.T) {
	env := newFlowEnv(t, nil)

	in := &ReturnRequestInput{
		OrderID: uuid.New(),
		Items:   []ReturnItemInput{{ItemID: env.order.Items[0].ID, Quantity: 1}},
	}
	_, err := env.flow.Execute(context.Background(), "tok-1", in)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperror.GetAppError(err).Code)

	// The failed stage advanced nothing.
	stored, err := env.keyRepo.GetByKey(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, enum.RecoveryPointStarted, stored.RecoveryPoint)
}

func TestReturnFlow_Execute_RejectsOverReturning(t *testing.T) {
	env := newFlowEnv(t, nil)

	_, err := env.flow.Execute(context.Background(), "", env.input(
		ReturnItemInput{ItemID: env.order.Items[0].ID, Quantity: 5},
	))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperror.GetAppError(err).Code)
	assert.Equal(t, 0, env.store.ReturnCount())
}

func TestReturnFlow_Execute_NotificationFlagDefaultsFromOrder(t *testing.T) {
	env := newFlowEnv(t, nil)

	order, err := env.orders.CreateOrder(context.Background(), &CreateOrderInput{
		Email:          "quiet@example.com",
		NoNotification: true,
		Items:          []OrderItemInput{{Title: "Kettle", Quantity: 1, UnitPrice: 4500}},
	})
	require.NoError(t, err)

	in := &ReturnRequestInput{
		OrderID: order.ID,
		Items:   []ReturnItemInput{{ItemID: order.Items[0].ID, Quantity: 1}},
	}
	rec, err := env.flow.Execute(context.Background(), "", in)
	require.NoError(t, err)

	payload := decodeOrderPayload(t, rec)
	require.Len(t, payload.Returns, 1)
	require.NotNil(t, payload.Returns[0].NoNotification)
	assert.True(t, *payload.Returns[0].NoNotification)

	events := env.store.Events()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Payload, `"no_notification":true`)
}
