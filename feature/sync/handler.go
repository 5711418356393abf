package sync

import (
	"context"

	"shapesync/core/status"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler exposes the sync engine over HTTP.
type Handler struct {
	engine *Engine
	status *status.Publisher
	logger *zap.Logger
}

// NewHandler creates the HTTP handler for sync operations.
func NewHandler(engine *Engine, pub *status.Publisher, logger *zap.Logger) *Handler {
	return &Handler{engine: engine, status: pub, logger: logger}
}

// Status returns the current sync status and message.
func (h *Handler) Status(c *fiber.Ctx) error {
	st, msg := h.status.Get()
	return c.JSON(fiber.Map{
		"status":  st,
		"message": msg,
	})
}

// Start kicks off a full sync run in the background.
func (h *Handler) Start(c *fiber.Ctx) error {
	go h.engine.Start(context.Background())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "sync started",
	})
}

// Repair forces a full resync of one table.
func (h *Handler) Repair(c *fiber.Ctx) error {
	table := c.Params("table")
	if err := h.engine.ForceFullTableSync(c.UserContext(), table); err != nil {
		h.logger.Error("Forced resync failed", zap.String("table", table), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "table resynced",
		"table":   table,
	})
}
