// Package orders provides the order management bounded context.
package orders

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "printstore_backend/internal/http"
	"printstore_backend/internal/orders/handler"
	"printstore_backend/internal/orders/repository"
	"printstore_backend/internal/orders/service"
	jobsrepo "printstore_backend/internal/printjobs/repository"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
	"printstore_backend/platform/validator"
)

// Module is the orders bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and wires the orders module.
func NewModule(pool *pgxpool.Pool, bus platformevents.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), jobsrepo.New(pool), bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "orders"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the order routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	grp := ctx.Admin.Group("/orders")
	grp.GET("", m.handler.List)
	grp.GET("/:id", m.handler.Get)
	grp.POST("", m.handler.Create)
	grp.PUT("/:id/status", m.handler.UpdateStatus)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
