// Package handler exposes order management over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"printstore_backend/internal/orders/domain"
	"printstore_backend/internal/orders/service"
	"printstore_backend/internal/orders/transport"
	"printstore_backend/platform/httpkit"
	"printstore_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid order id"
)

// Handler handles HTTP requests for orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the newest orders.
// GET /api/v1/admin/orders
func (h *Handler) List(c *gin.Context) {
	var req transport.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	orders, err := h.svc.List(c.Request.Context(), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, orders)
}

// Get returns one order with its items and print jobs.
// GET /api/v1/admin/orders/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	detail, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, detail)
}

// Create stores a new order.
// POST /api/v1/admin/orders
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	items := make([]service.NewItem, 0, len(req.Items))
	for _, item := range req.Items {
		var options []byte
		if item.Options != nil {
			options, _ = json.Marshal(item.Options)
		}
		items = append(items, service.NewItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			IsStockItem: item.IsStockItem,
			Options:     options,
		})
	}

	order, err := h.svc.Create(c.Request.Context(), items)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, order)
}

// UpdateStatus moves an order to a new status.
// PUT /api/v1/admin/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	order, err := h.svc.UpdateStatus(c.Request.Context(), id, domain.Status(req.Status), req.Note)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, order)
}
