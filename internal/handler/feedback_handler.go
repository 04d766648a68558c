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

// FeedbackHandler wires feedback HTTP routes.
type FeedbackHandler struct {
	service service.FeedbackService
	logger  zerolog.Logger
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register attaches feedback endpoints to the router group.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Post("/generate", h.generate)
	router.Get("/search", h.search)
	router.Get("/status/:repo", h.statusByRepo)
	router.Get("/task/:taskId", h.listByTask)
	router.Patch("/text", h.updateText)
	router.Patch("/grade", h.updateGrade)
	router.Post("/submit", h.submit)
}

func (h *FeedbackHandler) generate(c *fiber.Ctx) error {
	var payload dto.FeedbackGenerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	feedback, err := h.service.Generate(c.Context(), requester, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "feedback generated", feedback)
}

func (h *FeedbackHandler) search(c *fiber.Ctx) error {
	email := c.Query("email")
	taskID := c.Query("taskId")
	if email == "" || taskID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email and taskId are required")
	}

	feedback, err := h.service.Search(c.Context(), email, taskID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback retrieved", feedback)
}

func (h *FeedbackHandler) statusByRepo(c *fiber.Ctx) error {
	feedback, err := h.service.StatusByRepo(c.Context(), c.Params("repo"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback status retrieved", fiber.Map{
		"repo":   feedback.Repo,
		"status": feedback.Status,
	})
}

func (h *FeedbackHandler) listByTask(c *fiber.Ctx) error {
	feedbacks, err := h.service.ListByTask(c.Context(), c.Params("taskId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedbacks retrieved", feedbacks)
}

func (h *FeedbackHandler) updateText(c *fiber.Ctx) error {
	email := c.Query("email")
	taskID := c.Query("taskId")
	if email == "" || taskID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email and taskId are required")
	}

	var payload dto.FeedbackUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	feedback, err := h.service.UpdateText(c.Context(), email, taskID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback updated", feedback)
}

func (h *FeedbackHandler) updateGrade(c *fiber.Ctx) error {
	email := c.Query("email")
	taskID := c.Query("taskId")
	if email == "" || taskID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email and taskId are required")
	}

	var payload dto.FeedbackGradeUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	feedback, err := h.service.UpdateGrade(c.Context(), email, taskID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback grade updated", feedback)
}

func (h *FeedbackHandler) submit(c *fiber.Ctx) error {
	email := c.Query("email")
	taskID := c.Query("taskId")
	if email == "" || taskID == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "email and taskId are required")
	}

	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	if err := h.service.SubmitToPR(c.Context(), requester, email, taskID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "feedback sent to pull request", fiber.Map{
		"email":  email,
		"taskId": taskID,
	})
}

func (h *FeedbackHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrFeedbackNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "feedback not found")
	case errors.Is(err, service.ErrModelNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "ai model not found")
	case errors.Is(err, service.ErrTaskLinkNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "task link not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrInvalidCredential):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "stored credential cannot be decrypted")
	case errors.Is(err, service.ErrUnsupportedProvider):
		return utils.SendError(c, fiber.StatusBadRequest, "unsupported ai provider")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
