package service

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/domain/entity"
	"github.com/sokoflow/commerce-api/internal/domain/enum"
	"github.com/sokoflow/commerce-api/pkg/apperror"
)

// EventReturnRequested is emitted when a return is created for an order.
const EventReturnRequested = "order.return_requested"

// ReturnShippingInput represents the optional return-shipping selection
type ReturnShippingInput struct {
	OptionID *uuid.UUID
	Price    *int64
}

// ReturnRequestInput is the payload of one return-request operation. The
// same input replays through every stage of the workflow.
type ReturnRequestInput struct {
	OrderID        uuid.UUID
	Items          []ReturnItemInput
	ReturnShipping *ReturnShippingInput
	ReceiveNow     bool
	NoNotification *bool
	Refund         *int64

	// idempotencyKey is stamped by Execute once the key record exists, so
	// stages can tag and re-find the return created under this token.
	idempotencyKey string
}

// ReturnFlow runs the return-request operation as an idempotent two-stage
// workflow: "started" creates the return and emits the domain event,
// "return_requested" optionally receives it and caches the terminal order
// payload.
type ReturnFlow struct {
	keys     *IdempotencyService
	workflow *Workflow[*ReturnRequestInput]
	orders   *OrderService
	returns  *ReturnService
	shipping *ShippingService
	events   *EventService
}

// NewReturnFlow wires the return-request workflow.
func NewReturnFlow(
	keys *IdempotencyService,
	orders *OrderService,
	returns *ReturnService,
	shipping *ShippingService,
	events *EventService,
) (*ReturnFlow, error) {
	flow := &ReturnFlow{
		keys:     keys,
		orders:   orders,
		returns:  returns,
		shipping: shipping,
		events:   events,
	}

	workflow, err := NewWorkflow(keys, map[enum.RecoveryPoint]StageHandler[*ReturnRequestInput]{
		enum.RecoveryPointStarted:         flow.stageStarted,
		enum.RecoveryPointReturnRequested: flow.stageReturnRequested,
	})
	if err != nil {
		return nil, err
	}
	flow.workflow = workflow
	return flow, nil
}

// Execute runs the operation under the given idempotency key hint (empty
// mints one) and returns the key record carrying the cached terminal
// response. Calling it again with the same key replays the response without
// re-executing completed stages.
func (f *ReturnFlow) Execute(ctx context.Context, keyHint string, input *ReturnRequestInput) (*entity.IdempotencyKey, error) {
	rec, err := f.keys.InitializeRequest(ctx, keyHint, http.MethodPost, "/orders/:id/returns", map[string]string{
		"id": input.OrderID.String(),
	})
	if err != nil {
		return nil, err
	}
	input.idempotencyKey = rec.Key

	return f.workflow.Run(ctx, rec, input)
}

// stageStarted creates the return aggregate, attaches and fulfills the
// return-shipping method when requested, and emits the domain event. All of
// it commits atomically with the advance to "return_requested".
func (f *ReturnFlow) stageStarted(txCtx context.Context, input *ReturnRequestInput) (*StageResult, error) {
	order, err := f.orders.GetOrder(txCtx, input.OrderID)
	if err != nil {
		return nil, err
	}

	noNotification := resolveNotificationFlag(input.NoNotification, order.NoNotification)

	ret, err := f.returns.Create(txCtx, &CreateReturnInput{
		Order:          order,
		IdempotencyKey: input.idempotencyKey,
		Items:          input.Items,
		RefundAmount:   clampRefund(input.Refund),
		NoNotification: &noNotification,
	})
	if err != nil {
		return nil, err
	}

	if input.ReturnShipping != nil && input.ReturnShipping.OptionID != nil {
		method, err := f.shipping.CreateReturnMethod(txCtx, ret.ID, *input.ReturnShipping.OptionID, input.ReturnShipping.Price)
		if err != nil {
			return nil, err
		}
		if err := f.shipping.FulfillMethod(txCtx, method); err != nil {
			return nil, err
		}
	}

	err = f.events.Emit(txCtx, EventReturnRequested, map[string]interface{}{
		"order_id":        order.ID,
		"return_id":       ret.ID,
		"no_notification": noNotification,
	})
	if err != nil {
		return nil, err
	}

	return &StageResult{NextPoint: enum.RecoveryPointReturnRequested}, nil
}

// stageReturnRequested optionally receives the return created by the prior
// stage and caches the order projection as the terminal response.
func (f *ReturnFlow) stageReturnRequested(txCtx context.Context, input *ReturnRequestInput) (*StageResult, error) {
	if _, err := f.orders.GetOrder(txCtx, input.OrderID); err != nil {
		return nil, err
	}

	if input.ReceiveNow {
		ret, err := f.returns.GetByIdempotencyKey(txCtx, input.idempotencyKey)
		if err != nil {
			return nil, err
		}
		// The prior stage committed before this one can run, so a missing
		// return is a data-integrity violation, not a retryable miss.
		if ret == nil {
			return nil, apperror.NewInvalidStateError("Return requested under this idempotency key was not found")
		}
		if _, err := f.returns.Receive(txCtx, ret.ID, input.Items, clampRefund(input.Refund)); err != nil {
			return nil, err
		}
	}

	order, err := f.orders.GetOrderProjection(txCtx, input.OrderID)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]interface{}{"order": order})
	if err != nil {
		return nil, err
	}
	return &StageResult{
		ResponseCode: http.StatusOK,
		ResponseBody: string(body),
	}, nil
}
