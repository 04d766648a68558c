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

// TaskLinkHandler wires Moodle/Classroom task link routes.
type TaskLinkHandler struct {
	service service.TaskLinkService
	logger  zerolog.Logger
}

func NewTaskLinkHandler(service service.TaskLinkService, logger zerolog.Logger) *TaskLinkHandler {
	return &TaskLinkHandler{
		service: service,
		logger:  logger.With().Str("component", "task_link_handler").Logger(),
	}
}

// Register attaches task link endpoints to the router group.
func (h *TaskLinkHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/exists", h.exists)
	router.Get("/resolve", h.resolve)
	router.Get("/invitation", h.invitation)
	router.Get("/mine", h.listMine)
}

func (h *TaskLinkHandler) create(c *fiber.Ctx) error {
	var payload dto.TaskLinkCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	link, err := h.service.Create(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "task link created", link)
}

func (h *TaskLinkHandler) exists(c *fiber.Ctx) error {
	taskMoodle := c.Query("taskMoodle")
	issuer := c.Query("issuer")
	if taskMoodle == "" || issuer == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "taskMoodle and issuer are required")
	}

	exists, err := h.service.Exists(c.Context(), taskMoodle, issuer)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task link lookup", fiber.Map{"exists": exists})
}

func (h *TaskLinkHandler) resolve(c *fiber.Ctx) error {
	taskMoodle := c.Query("taskMoodle")
	issuer := c.Query("issuer")
	if taskMoodle == "" || issuer == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "taskMoodle and issuer are required")
	}

	link, err := h.service.Resolve(c.Context(), taskMoodle, issuer)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task link resolved", link)
}

func (h *TaskLinkHandler) invitation(c *fiber.Ctx) error {
	taskMoodle := c.Query("taskMoodle")
	issuer := c.Query("issuer")
	if taskMoodle == "" || issuer == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "taskMoodle and issuer are required")
	}

	url, err := h.service.InvitationURL(c.Context(), taskMoodle, issuer)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "invitation url retrieved", fiber.Map{"url_Invitation": url})
}

func (h *TaskLinkHandler) listMine(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	links, err := h.service.ListByOwner(c.Context(), requester)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "task links retrieved", links)
}

func (h *TaskLinkHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskLinkNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task link not found")
	case errors.Is(err, service.ErrTaskLinkConflict):
		return utils.SendError(c, fiber.StatusConflict, "task link already exists")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "owner not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
