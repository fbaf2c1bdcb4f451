package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/pricing"
)

// PricingHandler serves the locked catalogs. Read-only: prices cannot be
// changed through the API.
type PricingHandler struct{}

func NewPricingHandler() *PricingHandler {
	return &PricingHandler{}
}

func (h *PricingHandler) Tools(c *fiber.Ctx) error {
	return c.JSON(models.SuccessResponse(fiber.Map{
		"video": pricing.VideoTools,
		"image": pricing.ImageTools,
	}, ""))
}

func (h *PricingHandler) Plans(c *fiber.Ctx) error {
	return c.JSON(models.SuccessResponse(pricing.Plans, ""))
}

func (h *PricingHandler) TopupPackages(c *fiber.Ctx) error {
	return c.JSON(models.SuccessResponse(pricing.TopupPackages, ""))
}
