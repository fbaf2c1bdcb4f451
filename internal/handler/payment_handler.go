package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// HandleWebhook receives gateway callbacks. The body carries the signed
// payload as form fields; verification happens in the service.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	data := c.FormValue("data")
	signature := c.FormValue("signature")
	if data == "" || signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Missing data or signature"))
	}

	if err := h.paymentService.HandleWebhook(c.Context(), data, signature); err != nil {
		if errors.Is(err, models.ErrPaymentPending) {
			// Acknowledged; the gateway will call again once settled.
			return c.SendStatus(fiber.StatusOK)
		}
		return errorJSON(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// Confirm re-checks a payment against the gateway and settles it. The
// success-redirect page calls this so the user does not have to wait for
// the webhook.
func (h *PaymentHandler) Confirm(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid payment ID"))
	}

	if _, err := h.paymentService.Get(userID, uint(id)); err != nil {
		return errorJSON(c, err)
	}

	p, err := h.paymentService.Complete(c.Context(), uint(id), "")
	if err != nil {
		if errors.Is(err, models.ErrPaymentPending) {
			return c.Status(fiber.StatusAccepted).JSON(models.SuccessResponse(p, "Payment not settled yet"))
		}
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(p, "Payment completed"))
}

func (h *PaymentHandler) History(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	payments, err := h.paymentService.History(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(payments, ""))
}
