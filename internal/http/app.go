// Package http wires the domain modules into a single Gin engine.
package http

import (
	"context"

	"pawtrait_backend/internal/events"
	"pawtrait_backend/platform/config"
	"pawtrait_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router itself needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is pinged by the readiness endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the initialized dependencies from the composition root into the
// router. main.go builds it; router.New consumes it.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	// Modules are the HTTP-facing domain modules, registered in order.
	Modules []Module
}
