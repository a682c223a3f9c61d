// Package integration provides the reconciliation bounded context: it keeps
// orders and print jobs consistent and exposes the repair tooling.
package integration

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"printstore_backend/internal/events"
	apphttp "printstore_backend/internal/http"
	"printstore_backend/internal/integration/handler"
	logrepo "printstore_backend/internal/integration/repository"
	"printstore_backend/internal/integration/service"
	ordersrepo "printstore_backend/internal/orders/repository"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
	"printstore_backend/platform/validator"
)

// Module is the integration bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	log     *logger.Logger
}

// NewModule creates and wires the integration module.
func NewModule(pool *pgxpool.Pool, bus platformevents.Bus, enqueuer handler.RepairEnqueuer, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(
		ordersrepo.New(pool),
		jobsrepo.New(pool),
		logrepo.New(pool),
		bus,
		log,
	)
	return &Module{
		handler: handler.New(svc, enqueuer, val),
		service: svc,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "integration"
}

// Service returns the reconciliation engine for external callers such as
// the scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the integration routes. Everything lives under
// the admin group: reconciliation is an operator tool.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	grp := ctx.Admin.Group("/integration")
	grp.GET("/dashboard", m.handler.Dashboard)
	grp.GET("/logs", m.handler.ListLogs)
	grp.GET("/statistics", m.handler.Statistics)
	grp.GET("/activity", m.handler.ActivityChart)
	grp.GET("/orphaned", m.handler.ListOrphanedJobs)
	grp.GET("/incomplete", m.handler.ListIncompleteOrders)
	grp.POST("/repair", m.handler.Repair)
	grp.POST("/jobs/:id/fix", m.handler.FixJob)
	grp.GET("/jobs/:id/logs", m.handler.JobLogs)
	grp.GET("/orders/:id/logs", m.handler.OrderLogs)
	grp.POST("/orders/:id/fix", m.handler.FixOrder)
	grp.POST("/orders/:id/derive-status", m.handler.DeriveOrderStatus)
}

// RegisterHandlers subscribes the engine to order and job lifecycle events.
func (m *Module) RegisterHandlers(bus platformevents.Bus) {
	bus.Subscribe(events.TopicOrderStatusChanged, m)
	bus.Subscribe(events.TopicPrintJobFinished, m)
}

// Handle routes bus events to the engine.
func (m *Module) Handle(ctx context.Context, event platformevents.Event) error {
	switch e := event.(type) {
	case events.OrderStatusChanged:
		return m.service.SyncJobsForOrder(ctx, service.SystemActor, e.OrderID)
	case events.PrintJobFinished:
		if e.OrderID == nil {
			return nil
		}
		_, err := m.service.UpdateOrderStatusFromJobs(ctx, service.SystemActor, *e.OrderID)
		return err
	default:
		return nil
	}
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
