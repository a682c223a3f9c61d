// Package auth provides the authentication bounded context.
package auth

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"printstore_backend/internal/auth/handler"
	"printstore_backend/internal/auth/repository"
	"printstore_backend/internal/auth/service"
	apphttp "printstore_backend/internal/http"
	"printstore_backend/platform/config"
	"printstore_backend/platform/logger"
	"printstore_backend/platform/validator"
)

// Module is the auth bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and wires the auth module.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), cfg, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts the auth routes. Sign-in endpoints sit behind the
// stricter auth rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	grp := ctx.V1.Group("/auth")
	if ctx.AuthRateLimiter != nil {
		grp.Use(ctx.AuthRateLimiter.RateLimit())
	}
	grp.POST("/signin", m.handler.SignIn)
	grp.POST("/refresh", m.handler.Refresh)
	grp.POST("/signout", m.handler.SignOut)

	protected := ctx.Protected.Group("/auth")
	protected.GET("/me", m.handler.Me)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
