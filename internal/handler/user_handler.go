package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/repository"
	"github.com/vidora/vidora-backend/internal/service"
)

type UserHandler struct {
	users  *repository.UserRepository
	ledger *service.LedgerService
}

func NewUserHandler(users *repository.UserRepository, ledger *service.LedgerService) *UserHandler {
	return &UserHandler{
		users:  users,
		ledger: ledger,
	}
}

func (h *UserHandler) Profile(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(user, ""))
}

// Balance returns the spendable balance plus the credits currently tied up
// in open holds.
func (h *UserHandler) Balance(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	balance, held, err := h.ledger.Balance(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(fiber.Map{
		"credits": balance,
		"held":    held,
	}, ""))
}
