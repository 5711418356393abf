package sync

import (
	"shapesync/core/status"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature registers the sync endpoints with the web server.
type Feature struct {
	enabled bool
	handler *Handler
}

// NewFeature creates the sync feature.
func NewFeature(enabled bool, engine *Engine, pub *status.Publisher, logger *zap.Logger) *Feature {
	return &Feature{
		enabled: enabled,
		handler: NewHandler(engine, pub, logger),
	}
}

// Name returns the feature name used in logs.
func (f *Feature) Name() string {
	return "sync"
}

// IsEnabled reports whether the feature should be mounted.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load mounts the sync routes.
func (f *Feature) Load(app fiber.Router) error {
	group := app.Group("/sync")
	group.Get("/status", f.handler.Status)
	group.Post("/start", f.handler.Start)
	group.Post("/repair/:table", f.handler.Repair)
	return nil
}
