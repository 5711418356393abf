package outbox

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler exposes local writes and queue inspection over HTTP.
type Handler struct {
	service *Service
	pusher  *Pusher
	logger  *zap.Logger
}

// NewHandler creates the HTTP handler for local writes.
func NewHandler(service *Service, pusher *Pusher, logger *zap.Logger) *Handler {
	return &Handler{service: service, pusher: pusher, logger: logger}
}

// Insert creates a row in a mirrored table.
func (h *Handler) Insert(c *fiber.Ctx) error {
	table := c.Params("table")

	var row map[string]any
	if err := c.BodyParser(&row); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	stored, err := h.service.Insert(c.UserContext(), table, row)
	if err != nil {
		return h.writeError(c, table, err)
	}
	return c.Status(fiber.StatusCreated).JSON(stored)
}

// Update applies a partial change to a row.
func (h *Handler) Update(c *fiber.Ctx) error {
	table := c.Params("table")
	id := c.Params("id")

	var changes map[string]any
	if err := c.BodyParser(&changes); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := h.service.Update(c.UserContext(), table, id, changes); err != nil {
		return h.writeError(c, table, err)
	}
	return c.JSON(fiber.Map{"message": "updated", "id": id})
}

// Delete removes a row per the table's deletion policy; ?hard=true forces
// physical removal.
func (h *Handler) Delete(c *fiber.Ctx) error {
	table := c.Params("table")
	id := c.Params("id")
	hard := c.QueryBool("hard")

	if err := h.service.Delete(c.UserContext(), table, id, hard); err != nil {
		return h.writeError(c, table, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Queue reports the pending and parked mutation queues.
func (h *Handler) Queue(c *fiber.Ctx) error {
	pending, err := h.service.Pending(0)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	parked, err := h.service.Parked()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"pending": pending,
		"parked":  parked,
	})
}

// Push triggers an immediate drain of the queue.
func (h *Handler) Push(c *fiber.Ctx) error {
	h.pusher.Notify()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "push scheduled"})
}

func (h *Handler) writeError(c *fiber.Ctx, table string, err error) error {
	switch {
	case errors.Is(err, ErrUnknownTable):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrRowNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		h.logger.Error("Local write failed", zap.String("table", table), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
