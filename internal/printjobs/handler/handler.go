// Package handler exposes the print queue over HTTP.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"printstore_backend/internal/printjobs/domain"
	"printstore_backend/internal/printjobs/service"
	"printstore_backend/internal/printjobs/transport"
	"printstore_backend/platform/httpkit"
	"printstore_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid job id"
)

// Handler handles HTTP requests for the print queue.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new print queue handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns the print queue.
// GET /api/v1/admin/print-jobs
func (h *Handler) List(c *gin.Context) {
	var req transport.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	jobs, err := h.svc.List(c.Request.Context(), domain.Status(req.Status), req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, jobs)
}

// Get returns one print job.
// GET /api/v1/admin/print-jobs/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	job, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}

// QueueDepth returns the number of jobs still needing printer time.
// GET /api/v1/admin/print-jobs/queue-depth
func (h *Handler) QueueDepth(c *gin.Context) {
	n, err := h.svc.QueueDepth(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.QueueDepthResponse{Active: n})
}

// UpdateStatus reports a job status change from the print floor.
// PUT /api/v1/admin/print-jobs/:id/status
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

	job, err := h.svc.UpdateStatus(c.Request.Context(), id, domain.Status(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, job)
}
