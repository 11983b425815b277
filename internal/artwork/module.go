// Package artwork provides the artwork lifecycle domain module.
package artwork

import (
	"pawtrait_backend/internal/adapters/storage"
	"pawtrait_backend/internal/artwork/handler"
	"pawtrait_backend/internal/artwork/repository"
	"pawtrait_backend/internal/artwork/service"
	"pawtrait_backend/internal/events"
	apphttp "pawtrait_backend/internal/http"
	"pawtrait_backend/internal/review/policy"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
	"pawtrait_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the artwork domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new artwork module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, reviewPolicy policy.Policy, cfg config.ArtworkConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, reviewPolicy, cfg, log)
	h := handler.New(svc, val, log)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "artwork"
}

// Service returns the service layer for adapters and other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for background tasks (upload reminders).
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetStorage injects the storage service used for presigned source uploads.
func (m *Module) SetStorage(svc storage.StorageService, sourceBucket string) {
	m.handler.SetStorage(svc, sourceBucket)
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	artworks := ctx.V1.Group("/artworks")
	m.handler.RegisterRoutes(artworks, ctx.UploadRateLimiter.RateLimit())
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
