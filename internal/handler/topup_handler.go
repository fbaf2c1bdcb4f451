package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/service"
	"github.com/vidora/vidora-backend/pkg/utils"
)

type TopupHandler struct {
	topupService *service.TopupService
	validator    *utils.Validator
}

func NewTopupHandler(topupService *service.TopupService, validator *utils.Validator) *TopupHandler {
	return &TopupHandler{
		topupService: topupService,
		validator:    validator,
	}
}

func (h *TopupHandler) Purchase(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	var req models.CreateTopupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	purchase, checkout, err := h.topupService.Purchase(c.Context(), userID, req)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(fiber.Map{
		"purchase": purchase,
		"checkout": checkout,
	}, "Complete the payment to receive your credits"))
}

func (h *TopupHandler) History(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	purchases, err := h.topupService.History(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(purchases, ""))
}
