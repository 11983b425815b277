package events

import (
	platformevents "pawtrait_backend/platform/events"
	"pawtrait_backend/platform/logger"
)

// InMemoryBus aliases the platform implementation.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus builds the in-memory bus used by both the API and the worker.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
