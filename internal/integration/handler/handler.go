// Package handler exposes the reconciliation engine over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"printstore_backend/internal/integration/service"
	"printstore_backend/internal/integration/transport"
	"printstore_backend/platform/httpkit"
	"printstore_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid id"
)

// RepairEnqueuer hands a repair run to the background worker.
type RepairEnqueuer interface {
	EnqueueRepair(ctx context.Context, daysBack int) error
}

// Handler handles HTTP requests for the integration dashboard and tools.
type Handler struct {
	svc      *service.Service
	enqueuer RepairEnqueuer
	val      *validator.Validator
}

// New creates a new integration handler. The enqueuer may be nil, in
// which case async repair requests run synchronously.
func New(svc *service.Service, enqueuer RepairEnqueuer, val *validator.Validator) *Handler {
	return &Handler{svc: svc, enqueuer: enqueuer, val: val}
}

func actorFrom(c *gin.Context) (service.Actor, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return service.Actor{}, false
	}
	return service.Actor{ID: identity.UserID(), Name: identity.Name()}, true
}

// Dashboard returns headline counters plus the latest audit entries.
// GET /api/v1/admin/integration/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.svc.Dashboard(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	recent, err := h.svc.Logs(c.Request.Context(), "", 20)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.DashboardResponse{
		Stats:  stats,
		Recent: transport.FromLogEntries(recent),
	})
}

// ListLogs returns audit entries, optionally filtered by status tag.
// GET /api/v1/admin/integration/logs
func (h *Handler) ListLogs(c *gin.Context) {
	var req transport.ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	entries, err := h.svc.Logs(c.Request.Context(), req.Status, req.Limit)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromLogEntries(entries))
}

// OrderLogs returns the audit trail of a single order.
// GET /api/v1/admin/integration/orders/:id/logs
func (h *Handler) OrderLogs(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	entries, err := h.svc.LogsForOrder(c.Request.Context(), orderID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromLogEntries(entries))
}

// JobLogs returns the audit trail of a single print job.
// GET /api/v1/admin/integration/jobs/:id/logs
func (h *Handler) JobLogs(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	entries, err := h.svc.LogsForJob(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.FromLogEntries(entries))
}

// Statistics returns aggregated (event, status) counts.
// GET /api/v1/admin/integration/statistics
func (h *Handler) Statistics(c *gin.Context) {
	daysBack, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	stats, err := h.svc.Statistics(c.Request.Context(), daysBack)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// ActivityChart returns per-day status counts for the dashboard chart.
// GET /api/v1/admin/integration/activity
func (h *Handler) ActivityChart(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	chart, err := h.svc.ActivityChart(c.Request.Context(), days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, chart)
}

// Repair runs the drift repair tools.
// POST /api/v1/admin/integration/repair
func (h *Handler) Repair(c *gin.Context) {
	var req transport.RepairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	if !req.RepairOrphaned && !req.RepairIncomplete {
		httpkit.Error(c, http.StatusBadRequest, "nothing to repair: select at least one category", nil)
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if req.Async && h.enqueuer != nil {
		if err := h.enqueuer.EnqueueRepair(c.Request.Context(), req.DaysBack); err != nil {
			httpkit.Error(c, http.StatusInternalServerError, "failed to enqueue repair", nil)
			return
		}
		httpkit.JSON(c, http.StatusAccepted, transport.EnqueuedResponse{
			Enqueued: true,
			TaskType: "integration:repair",
		})
		return
	}

	resp := transport.RepairResponse{}
	if req.RepairOrphaned {
		result, err := h.svc.RepairOrphanedJobs(c.Request.Context(), actor, req.DaysBack)
		if httpkit.HandleError(c, err) {
			return
		}
		resp.Orphaned = result
	}
	if req.RepairIncomplete {
		result, err := h.svc.RepairIncompleteFlows(c.Request.Context(), actor, req.DaysBack)
		if httpkit.HandleError(c, err) {
			return
		}
		resp.Incomplete = result
	}
	httpkit.OK(c, resp)
}

// FixJob re-synchronizes one print job with its order.
// POST /api/v1/admin/integration/jobs/:id/fix
func (h *Handler) FixJob(c *gin.Context) {
	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.FixJob(c.Request.Context(), actor, jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// FixOrder rebuilds and re-synchronizes the print jobs of one order.
// POST /api/v1/admin/integration/orders/:id/fix
func (h *Handler) FixOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.FixOrder(c.Request.Context(), actor, orderID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeriveOrderStatus re-derives one order's status from its jobs.
// POST /api/v1/admin/integration/orders/:id/derive-status
func (h *Handler) DeriveOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	result, err := h.svc.UpdateOrderStatusFromJobs(c.Request.Context(), actor, orderID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListOrphanedJobs lists jobs whose order link is broken.
// GET /api/v1/admin/integration/orphaned
func (h *Handler) ListOrphanedJobs(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	jobs, err := h.svc.OrphanedJobs(c.Request.Context(), days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, jobs)
}

// ListIncompleteOrders lists orders missing print jobs for printable items.
// GET /api/v1/admin/integration/incomplete
func (h *Handler) ListIncompleteOrders(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	orders, err := h.svc.IncompleteOrders(c.Request.Context(), days)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, orders)
}
