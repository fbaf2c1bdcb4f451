package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/service"
	"github.com/vidora/vidora-backend/pkg/utils"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	validator           *utils.Validator
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, validator *utils.Validator) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		validator:           validator,
	}
}

func (h *SubscriptionHandler) Purchase(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	var req models.PurchaseSubscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	sub, checkout, err := h.subscriptionService.Purchase(c.Context(), userID, req)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(fiber.Map{
		"subscription": sub,
		"checkout":     checkout,
	}, "Complete the payment to activate your subscription"))
}

func (h *SubscriptionHandler) Info(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	sub, plan, err := h.subscriptionService.Info(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(fiber.Map{
		"subscription": sub,
		"plan":         plan,
	}, ""))
}

func (h *SubscriptionHandler) Cancel(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	sub, err := h.subscriptionService.Cancel(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(sub, "Subscription cancelled"))
}
