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

// UserHandler wires user and membership routes.
type UserHandler struct {
	service service.UserService
	logger  zerolog.Logger
}

func NewUserHandler(service service.UserService, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register attaches user endpoints to the router group.
func (h *UserHandler) Register(router fiber.Router) {
	router.Post("/sync", h.sync)
	router.Get("/me", h.me)
	router.Get("/org/:orgId", h.listByOrg)
	router.Patch("/role", h.setRole)
	router.Patch("/active", h.setActive)
}

func (h *UserHandler) sync(c *fiber.Ctx) error {
	var payload dto.UserSyncRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.service.SyncFromGithub(c.Context(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user synchronized", user)
}

func (h *UserHandler) me(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	user, err := h.service.Get(c.Context(), requester)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) listByOrg(c *fiber.Ctx) error {
	users, err := h.service.ListByOrg(c.Context(), c.Params("orgId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "users retrieved", users)
}

func (h *UserHandler) setRole(c *fiber.Ctx) error {
	var payload dto.MembershipRoleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetRole(c.Context(), payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "membership role updated", nil)
}

func (h *UserHandler) setActive(c *fiber.Ctx) error {
	var payload dto.MembershipActiveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.service.SetActive(c.Context(), payload); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "membership updated", nil)
}

func (h *UserHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
