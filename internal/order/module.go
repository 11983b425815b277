// Package order provides the order bounded context: customer order lookup,
// the payment-session reconciliation engine, and fulfillment linkage.
package order

import (
	"pawtrait_backend/internal/catalog"
	"pawtrait_backend/internal/events"
	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/internal/order/handler"
	"pawtrait_backend/internal/order/repository"
	"pawtrait_backend/internal/order/service"
	"pawtrait_backend/internal/payment"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the order bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
}

// NewModule creates and initializes the order module.
func NewModule(pool *pgxpool.Pool, payments payment.Client, cat *catalog.Catalog, eventBus events.Bus, cfg config.ReconcileConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, payments, cat, eventBus, cfg, log)

	return &Module{
		service: svc,
		handler: handler.New(svc, val),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "order"
}

// Service exposes the order service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/orders"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/orders"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
