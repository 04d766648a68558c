package handler

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/service"
	"github.com/uca-sae/sae-go-api/internal/utils"
)

// ModelHandler wires AI model credential routes.
type ModelHandler struct {
	service service.ModelService
	logger  zerolog.Logger
}

func NewModelHandler(service service.ModelService, logger zerolog.Logger) *ModelHandler {
	return &ModelHandler{
		service: service,
		logger:  logger.With().Str("component", "model_handler").Logger(),
	}
}

// Register attaches AI model endpoints to the router group.
func (h *ModelHandler) Register(router fiber.Router) {
	router.Get("/types", h.listTypes)
	router.Post("/", h.create)
	router.Delete("/:id", h.delete)
	router.Post("/:id/teachers", h.addTeacher)
	router.Delete("/:id/teachers", h.removeTeacher)
	router.Get("/mine", h.listMine)
	router.Get("/org/:orgId", h.listByOrg)
}

func (h *ModelHandler) listTypes(c *fiber.Ctx) error {
	types, err := h.service.ListTypes(c.Context())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "model types retrieved", types)
}

func (h *ModelHandler) create(c *fiber.Ctx) error {
	var payload dto.ModelCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	model, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "model registered", model)
}

func (h *ModelHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid model id")
	}

	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	if err := h.service.Delete(c.Context(), requester, id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "model deleted", nil)
}

func (h *ModelHandler) addTeacher(c *fiber.Ctx) error {
	return h.changeACL(c, h.service.AddTeacher, "teacher granted access")
}

func (h *ModelHandler) removeTeacher(c *fiber.Ctx) error {
	return h.changeACL(c, h.service.RemoveTeacher, "teacher access revoked")
}

func (h *ModelHandler) changeACL(
	c *fiber.Ctx,
	apply func(ctx context.Context, requesterEmail string, id uint, payload dto.ModelACLRequest) (dto.ModelResponse, error),
	message string,
) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid model id")
	}

	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	var payload dto.ModelACLRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	model, err := apply(c.Context(), requester, id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, message, model)
}

func (h *ModelHandler) listMine(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	modelList, err := h.service.ListForTeacher(c.Context(), requester)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "models retrieved", modelList)
}

func (h *ModelHandler) listByOrg(c *fiber.Ctx) error {
	modelList, err := h.service.ListByOrg(c.Context(), c.Params("orgId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "models retrieved", modelList)
}

func (h *ModelHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrModelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "ai model not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "owner not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrUnsupportedProvider):
		return utils.SendError(c, fiber.StatusBadRequest, "unsupported ai provider")
	case errors.Is(err, service.ErrNotOrganizational):
		return utils.SendError(c, fiber.StatusBadRequest, "model is not organizational")
	case errors.Is(err, models.ErrInvalidOwnership):
		return utils.SendError(c, fiber.StatusBadRequest, "exactly one of owner_email or org_id is required")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
