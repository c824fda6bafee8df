package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sokoflow/commerce-api/internal/application/service"
	"github.com/sokoflow/commerce-api/internal/presentation/http/dto/request"
	"github.com/sokoflow/commerce-api/internal/presentation/http/dto/response"
	"github.com/sokoflow/commerce-api/internal/presentation/http/middleware"
)

// ReturnHandler handles return-related HTTP requests
type ReturnHandler struct {
	returnFlow *service.ReturnFlow
}

// NewReturnHandler creates a new return handler
func NewReturnHandler(returnFlow *service.ReturnFlow) *ReturnHandler {
	return &ReturnHandler{returnFlow: returnFlow}
}

// RequestReturn handles POST /orders/:id/returns. The operation is
// idempotent under the Idempotency-Key header: a retry with the same key
// resumes the workflow wherever it durably stopped and replays the cached
// response once finished. The key is echoed in the response header.
func (h *ReturnHandler) RequestReturn(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid order ID")
		return
	}

	var req request.CreateReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	input, err := buildReturnInput(orderID, &req)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	keyHint := c.GetHeader(middleware.IdempotencyKeyHeader)
	rec, err := h.returnFlow.Execute(c.Request.Context(), keyHint, input)
	if rec != nil {
		c.Header(middleware.IdempotencyKeyHeader, rec.Key)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(rec.ResponseCode, "application/json", []byte(rec.ResponseBody))
}

func buildReturnInput(orderID uuid.UUID, req *request.CreateReturnRequest) (*service.ReturnRequestInput, error) {
	items := make([]service.ReturnItemInput, 0, len(req.Items))
	for _, in := range req.Items {
		itemID, err := uuid.Parse(in.ItemID)
		if err != nil {
			return nil, err
		}
		item := service.ReturnItemInput{
			ItemID:   itemID,
			Quantity: in.Quantity,
			Note:     in.Note,
		}
		if in.ReasonID != nil {
			reasonID, err := uuid.Parse(*in.ReasonID)
			if err != nil {
				return nil, err
			}
			item.ReasonID = &reasonID
		}
		items = append(items, item)
	}

	input := &service.ReturnRequestInput{
		OrderID:        orderID,
		Items:          items,
		ReceiveNow:     req.ReceiveNow,
		NoNotification: req.NoNotification,
		Refund:         req.Refund,
	}

	if req.ReturnShipping != nil {
		shipping := &service.ReturnShippingInput{Price: req.ReturnShipping.Price}
		if req.ReturnShipping.OptionID != nil {
			optionID, err := uuid.Parse(*req.ReturnShipping.OptionID)
			if err != nil {
				return nil, err
			}
			shipping.OptionID = &optionID
		}
		input.ReturnShipping = shipping
	}

	return input, nil
}
