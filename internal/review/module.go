// Package review provides the admin review gate domain module.
package review

import (
	"pawtrait_backend/internal/events"
	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/internal/review/handler"
	"pawtrait_backend/internal/review/repository"
	"pawtrait_backend/internal/review/service"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the review domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new review module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "review"
}

// Service returns the service layer for adapters and other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's admin routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	reviews := ctx.Admin.Group("/reviews")
	m.handler.RegisterRoutes(reviews)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
