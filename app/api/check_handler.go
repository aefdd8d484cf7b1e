package api

import (
	"docai/rag"

	"github.com/gofiber/fiber/v2"
)

type CheckHandler struct {
	service *rag.Service
}

func NewCheckHandler(service *rag.Service) *CheckHandler {
	return &CheckHandler{
		service: service,
	}
}

// HandleHealthy reports per-component health. A degraded component turns the
// response into 503 but the payload still shows which checks passed.
func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	status := h.service.Health(c.Context())
	if !status.OverallHealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(status)
	}
	return c.JSON(status)
}
