package outbox

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature registers the local write endpoints with the web server.
type Feature struct {
	enabled bool
	handler *Handler
}

// NewFeature creates the outbox feature.
func NewFeature(enabled bool, service *Service, pusher *Pusher, logger *zap.Logger) *Feature {
	return &Feature{
		enabled: enabled,
		handler: NewHandler(service, pusher, logger),
	}
}

// Name returns the feature name used in logs.
func (f *Feature) Name() string {
	return "outbox"
}

// IsEnabled reports whether the feature should be mounted.
func (f *Feature) IsEnabled() bool {
	return f.enabled
}

// Load mounts the local write routes.
func (f *Feature) Load(app fiber.Router) error {
	data := app.Group("/data")
	data.Post("/:table", f.handler.Insert)
	data.Patch("/:table/:id", f.handler.Update)
	data.Delete("/:table/:id", f.handler.Delete)

	queue := app.Group("/outbox")
	queue.Get("/", f.handler.Queue)
	queue.Post("/push", f.handler.Push)
	return nil
}
