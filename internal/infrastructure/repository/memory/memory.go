// Package memory provides in-memory repository adapters used by tests and
// local development. They mirror the behavior of the GORM adapters closely
// enough to drive the workflow end to end, but provide no transactional
// rollback: the Scope here commits everything a stage writes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/internal/domain/repository"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

// Store holds all in-memory tables behind one mutex.
type Store struct {
	mu sync.Mutex

	orders          map[uuid.UUID]entity.Order
	lineItems       map[uuid.UUID]entity.LineItem
	returns         map[uuid.UUID]entity.Return
	returnItems     map[uuid.UUID]entity.ReturnItem
	shippingOptions map[uuid.UUID]entity.ShippingOption
	shippingMethods map[uuid.UUID]entity.ShippingMethod
	events          []entity.Event
	keys            map[string]entity.IdempotencyKey
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		orders:          make(map[uuid.UUID]entity.Order),
		lineItems:       make(map[uuid.UUID]entity.LineItem),
		returns:         make(map[uuid.UUID]entity.Return),
		returnItems:     make(map[uuid.UUID]entity.ReturnItem),
		shippingOptions: make(map[uuid.UUID]entity.ShippingOption),
		shippingMethods: make(map[uuid.UUID]entity.ShippingMethod),
		keys:            make(map[string]entity.IdempotencyKey),
	}
}

// Scope is a pass-through transaction scope: fn runs directly and its writes
// are never rolled back.
type Scope struct{}

// Execute runs fn with the given context
func (Scope) Execute(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// SeedShippingOption stores a shipping option for tests
func (s *Store) SeedShippingOption(option entity.ShippingOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if option.ID == uuid.Nil {
		option.ID = uuid.New()
	}
	s.shippingOptions[option.ID] = option
}

// Events returns a snapshot of all appended events
func (s *Store) Events() []entity.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Event, len(s.events))
	copy(out, s.events)
	return out
}

// ReturnCount reports how many returns are stored
func (s *Store) ReturnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.returns)
}

// ---------------------------------------------------------------------------
// Idempotency keys

type idempotencyRepo struct{ store *Store }

// NewIdempotencyRepository creates an in-memory idempotency repository
func NewIdempotencyRepository(store *Store) repository.IdempotencyRepository {
	return &idempotencyRepo{store: store}
}

func (r *idempotencyRepo) GetByKey(ctx context.Context, key string) (*entity.IdempotencyKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.getLocked(key), nil
}

func (r *idempotencyRepo) getLocked(key string) *entity.IdempotencyKey {
	rec, ok := r.store.keys[key]
	if !ok {
		return nil
	}
	out := rec
	return &out
}

func (r *idempotencyRepo) CreateIfAbsent(ctx context.Context, rec *entity.IdempotencyKey) (*entity.IdempotencyKey, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.keys[rec.Key]; ok {
		out := existing
		return &out, false, nil
	}

	stored := *rec
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt = time.Now().UTC()
	r.store.keys[rec.Key] = stored
	out := stored
	return &out, true, nil
}

func (r *idempotencyRepo) AcquireLock(ctx context.Context, key string, staleAfter time.Duration) (*entity.IdempotencyKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.keys[key]
	if !ok {
		return nil, apperror.NewNotFoundError("Idempotency key")
	}
	now := time.Now().UTC()
	if rec.LockedAt != nil && now.Sub(*rec.LockedAt) < staleAfter {
		return nil, apperror.ErrIdempotencyLocked
	}
	rec.LockedAt = &now
	r.store.keys[key] = rec
	out := rec
	return &out, nil
}

func (r *idempotencyRepo) ReleaseLock(ctx context.Context, key string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.keys[key]
	if !ok {
		return nil
	}
	rec.LockedAt = nil
	r.store.keys[key] = rec
	return nil
}

func (r *idempotencyRepo) AdvanceStage(ctx context.Context, key string, expected enum.RecoveryPoint, patch repository.KeyPatch) (*entity.IdempotencyKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.keys[key]
	if !ok || rec.RecoveryPoint != expected {
		return nil, apperror.ErrIdempotencyConflict
	}
	applyPatch(&rec, patch)
	rec.LockedAt = nil
	r.store.keys[key] = rec
	out := rec
	return &out, nil
}

func (r *idempotencyRepo) Update(ctx context.Context, key string, patch repository.KeyPatch) (*entity.IdempotencyKey, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	rec, ok := r.store.keys[key]
	if !ok {
		return nil, apperror.NewNotFoundError("Idempotency key")
	}
	applyPatch(&rec, patch)
	r.store.keys[key] = rec
	out := rec
	return &out, nil
}

func (r *idempotencyRepo) Delete(ctx context.Context, key string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.keys, key)
	return nil
}

func (r *idempotencyRepo) DeleteOlderThan(ctx context.Context, age time.Duration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cutoff := time.Now().UTC().Add(-age)
	for key, rec := range r.store.keys {
		if rec.CreatedAt.Before(cutoff) {
			delete(r.store.keys, key)
		}
	}
	return nil
}

func applyPatch(rec *entity.IdempotencyKey, patch repository.KeyPatch) {
	if patch.RecoveryPoint != nil {
		rec.RecoveryPoint = *patch.RecoveryPoint
	}
	if patch.ResponseCode != nil {
		rec.ResponseCode = *patch.ResponseCode
	}
	if patch.ResponseBody != nil {
		rec.ResponseBody = *patch.ResponseBody
	}
	rec.UpdatedAt = time.Now().UTC()
}

// ---------------------------------------------------------------------------
// Orders and line items

type orderRepo struct{ store *Store }

// NewOrderRepository creates an in-memory order repository
func NewOrderRepository(store *Store) repository.OrderRepository {
	return &orderRepo{store: store}
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID, relations ...string) (*entity.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	order, ok := r.store.orders[id]
	if !ok {
		return nil, nil
	}

	out := order
	wantReturns := false
	for _, rel := range relations {
		switch rel {
		case "Items":
			out.Items = r.store.itemsForOrder(id)
		case "Returns":
			wantReturns = true
		}
	}
	if wantReturns {
		out.Returns = r.store.returnsForOrder(id)
	}
	return &out, nil
}

func (r *orderRepo) Create(ctx context.Context, order *entity.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = time.Now().UTC()
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		r.store.lineItems[item.ID] = *item
	}

	stored := *order
	stored.Items = nil
	stored.Returns = nil
	r.store.orders[order.ID] = stored
	return nil
}

func (r *orderRepo) Save(ctx context.Context, order *entity.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *order
	stored.Items = nil
	stored.Returns = nil
	r.store.orders[order.ID] = stored
	for _, item := range order.Items {
		r.store.lineItems[item.ID] = item
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []entity.Order
	for id, order := range r.store.orders {
		if params != nil && params.Status != nil && order.Status != *params.Status {
			continue
		}
		if params != nil && params.Email != "" && order.Email != params.Email {
			continue
		}
		loaded := order
		loaded.Items = r.store.itemsForOrder(id)
		out = append(out, loaded)
	}
	return out, int64(len(out)), nil
}

func (s *Store) itemsForOrder(orderID uuid.UUID) []entity.LineItem {
	var items []entity.LineItem
	for _, item := range s.lineItems {
		if item.OrderID == orderID {
			items = append(items, item)
		}
	}
	return items
}

func (s *Store) returnsForOrder(orderID uuid.UUID) []entity.Return {
	var returns []entity.Return
	for id, ret := range s.returns {
		if ret.OrderID != orderID {
			continue
		}
		loaded := ret
		loaded.Items = s.itemsForReturn(id)
		loaded.ShippingMethod = s.methodForReturn(id)
		returns = append(returns, loaded)
	}
	return returns
}

func (s *Store) itemsForReturn(returnID uuid.UUID) []entity.ReturnItem {
	var items []entity.ReturnItem
	for _, item := range s.returnItems {
		if item.ReturnID == returnID {
			items = append(items, item)
		}
	}
	return items
}

func (s *Store) methodForReturn(returnID uuid.UUID) *entity.ShippingMethod {
	for _, method := range s.shippingMethods {
		if method.ReturnID != nil && *method.ReturnID == returnID {
			out := method
			if option, ok := s.shippingOptions[method.ShippingOptionID]; ok {
				out.ShippingOption = option
			}
			return &out
		}
	}
	return nil
}

type lineItemRepo struct{ store *Store }

// NewLineItemRepository creates an in-memory line item repository
func NewLineItemRepository(store *Store) repository.LineItemRepository {
	return &lineItemRepo{store: store}
}

func (r *lineItemRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.LineItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var items []entity.LineItem
	for _, id := range ids {
		if item, ok := r.store.lineItems[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *lineItemRepo) Save(ctx context.Context, item *entity.LineItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.lineItems[item.ID] = *item
	return nil
}

// ---------------------------------------------------------------------------
// Returns

type returnRepo struct{ store *Store }

// NewReturnRepository creates an in-memory return repository
func NewReturnRepository(store *Store) repository.ReturnRepository {
	return &returnRepo{store: store}
}

func (r *returnRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Return, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ret, ok := r.store.returns[id]
	if !ok {
		return nil, nil
	}
	out := ret
	out.Items = r.store.itemsForReturn(id)
	out.ShippingMethod = r.store.methodForReturn(id)
	return &out, nil
}

func (r *returnRepo) GetByIdempotencyKey(ctx context.Context, key string) (*entity.Return, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for id, ret := range r.store.returns {
		if ret.IdempotencyKey == key {
			out := ret
			out.Items = r.store.itemsForReturn(id)
			out.ShippingMethod = r.store.methodForReturn(id)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *returnRepo) Create(ctx context.Context, ret *entity.Return) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if ret.ID == uuid.Nil {
		ret.ID = uuid.New()
	}
	ret.CreatedAt = time.Now().UTC()
	for i := range ret.Items {
		item := &ret.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.ReturnID = ret.ID
		r.store.returnItems[item.ID] = *item
	}

	stored := *ret
	stored.Items = nil
	stored.ShippingMethod = nil
	r.store.returns[ret.ID] = stored
	return nil
}

func (r *returnRepo) Save(ctx context.Context, ret *entity.Return) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *ret
	stored.Items = nil
	stored.ShippingMethod = nil
	r.store.returns[ret.ID] = stored
	for _, item := range ret.Items {
		r.store.returnItems[item.ID] = item
	}
	return nil
}

func (r *returnRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]entity.Return, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.returnsForOrder(orderID), nil
}

// ---------------------------------------------------------------------------
// Shipping

type shippingRepo struct{ store *Store }

// NewShippingRepository creates an in-memory shipping repository
func NewShippingRepository(store *Store) repository.ShippingRepository {
	return &shippingRepo{store: store}
}

func (r *shippingRepo) GetOptionByID(ctx context.Context, id uuid.UUID) (*entity.ShippingOption, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	option, ok := r.store.shippingOptions[id]
	if !ok {
		return nil, nil
	}
	out := option
	return &out, nil
}

func (r *shippingRepo) CreateMethod(ctx context.Context, method *entity.ShippingMethod) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if method.ID == uuid.Nil {
		method.ID = uuid.New()
	}
	method.CreatedAt = time.Now().UTC()
	stored := *method
	stored.ShippingOption = entity.ShippingOption{}
	r.store.shippingMethods[method.ID] = stored
	return nil
}

func (r *shippingRepo) SaveMethod(ctx context.Context, method *entity.ShippingMethod) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := *method
	stored.ShippingOption = entity.ShippingOption{}
	r.store.shippingMethods[method.ID] = stored
	return nil
}

// ---------------------------------------------------------------------------
// Events

type eventRepo struct{ store *Store }

// NewEventRepository creates an in-memory event outbox repository
func NewEventRepository(store *Store) repository.EventRepository {
	return &eventRepo{store: store}
}

func (r *eventRepo) Append(ctx context.Context, event *entity.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now().UTC()
	r.store.events = append(r.store.events, *event)
	return nil
}

func (r *eventRepo) ListUnpublished(ctx context.Context, limit int) ([]entity.Event, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []entity.Event
	for _, event := range r.store.events {
		if event.PublishedAt == nil {
			out = append(out, event)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *eventRepo) MarkPublished(ctx context.Context, events []entity.Event) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	ids := make(map[uuid.UUID]bool, len(events))
	for _, event := range events {
		ids[event.ID] = true
	}
	now := time.Now().UTC()
	for i := range r.store.events {
		if ids[r.store.events[i].ID] && r.store.events[i].PublishedAt == nil {
			r.store.events[i].PublishedAt = &now
		}
	}
	return nil
}
