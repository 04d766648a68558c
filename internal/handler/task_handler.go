package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/uca-sae/sae-go-api/internal/dto"
	"github.com/uca-sae/sae-go-api/internal/service"
	"github.com/uca-sae/sae-go-api/internal/utils"
)

// TaskHandler wires task delivery rollup routes.
type TaskHandler struct {
	service service.TaskStatusService
	logger  zerolog.Logger
}

func NewTaskHandler(service service.TaskStatusService, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger.With().Str("component", "task_handler").Logger(),
	}
}

// Register attaches task status endpoints to the router group.
func (h *TaskHandler) Register(router fiber.Router) {
	router.Get("/:taskId/status", h.status)
	router.Put("/status", h.upsert)
	router.Post("/:taskId/refresh", h.refresh)
	router.Get("/:taskId/all-sent", h.allSent)
}

func (h *TaskHandler) status(c *fiber.Ctx) error {
	status, err := h.service.Get(c.Context(), c.Params("taskId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task status retrieved", status)
}

func (h *TaskHandler) upsert(c *fiber.Ctx) error {
	var payload dto.TaskStatusUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	status, err := h.service.Upsert(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task status saved", status)
}

func (h *TaskHandler) refresh(c *fiber.Ctx) error {
	taskID := c.Params("taskId")
	if err := h.service.Refresh(c.Context(), taskID); err != nil {
		return h.handleError(c, err)
	}

	status, err := h.service.Get(c.Context(), taskID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task status refreshed", status)
}

func (h *TaskHandler) allSent(c *fiber.Ctx) error {
	allSent, err := h.service.AllFeedbackSent(c.Context(), c.Params("taskId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task completion lookup", fiber.Map{"all_sent": allSent})
}

func (h *TaskHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskStatusNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task status not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
