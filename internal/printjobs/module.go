// Package printjobs provides the print queue bounded context.
package printjobs

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "printstore_backend/internal/http"
	"printstore_backend/internal/printjobs/handler"
	"printstore_backend/internal/printjobs/repository"
	"printstore_backend/internal/printjobs/service"
	platformevents "printstore_backend/platform/events"
	"printstore_backend/platform/logger"
	"printstore_backend/platform/validator"
)

// Module is the print queue bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and wires the print queue module.
func NewModule(pool *pgxpool.Pool, bus platformevents.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), bus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "printjobs"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the print queue routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	grp := ctx.Admin.Group("/print-jobs")
	grp.GET("", m.handler.List)
	grp.GET("/queue-depth", m.handler.QueueDepth)
	grp.GET("/:id", m.handler.Get)
	grp.PUT("/:id/status", m.handler.UpdateStatus)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
