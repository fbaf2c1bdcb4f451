package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/pkg/payment"
)

// statusForError maps domain errors onto HTTP status codes.
func statusForError(err error) int {
	var insufficient *models.InsufficientCreditsError

	switch {
	case errors.As(err, &insufficient):
		return fiber.StatusPaymentRequired
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidTool),
		errors.Is(err, models.ErrInvalidPlan),
		errors.Is(err, models.ErrInvalidPackage),
		errors.Is(err, payment.ErrSignatureInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, models.ErrAlreadySubscribed),
		errors.Is(err, models.ErrInvalidTransition):
		return fiber.StatusConflict
	case errors.Is(err, models.ErrGateway):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusForError(err)).JSON(models.ErrorResponse(err.Error()))
}

// currentUserID pulls the authenticated user out of the request context.
func currentUserID(c *fiber.Ctx) (uint, error) {
	raw := c.Locals("userID")
	if raw == nil {
		return 0, errors.New("user not authenticated")
	}
	userID, ok := raw.(uint)
	if !ok {
		return 0, errors.New("invalid user ID format")
	}
	return userID, nil
}
