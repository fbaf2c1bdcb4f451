package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/vidora/vidora-backend/internal/models"
	"github.com/vidora/vidora-backend/internal/service"
	"github.com/vidora/vidora-backend/pkg/utils"
)

type GenerationHandler struct {
	generationService *service.GenerationService
	validator         *utils.Validator
}

func NewGenerationHandler(generationService *service.GenerationService, validator *utils.Validator) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
		validator:         validator,
	}
}

func (h *GenerationHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	var req models.CreateGenerationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	gen, err := h.generationService.Create(c.Context(), userID, req)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(gen, "Generation finished"))
}

func (h *GenerationHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid generation ID"))
	}

	gen, err := h.generationService.Get(userID, uint(id))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(gen, ""))
}

func (h *GenerationHandler) History(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(err.Error()))
	}

	gens, err := h.generationService.History(userID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(models.SuccessResponse(gens, ""))
}
