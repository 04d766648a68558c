package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/uca-sae/sae-go-api/internal/service"
	"github.com/uca-sae/sae-go-api/internal/utils"
	"github.com/uca-sae/sae-go-api/pkg/lti"
)

// LTIHandler terminates the LTI 1.3 launch flow and the grade passback entrypoint.
type LTIHandler struct {
	verifier *lti.Verifier
	launches service.LTILaunchService
	logger   zerolog.Logger
}

func NewLTIHandler(verifier *lti.Verifier, launches service.LTILaunchService, logger zerolog.Logger) *LTIHandler {
	return &LTIHandler{
		verifier: verifier,
		launches: launches,
		logger:   logger.With().Str("component", "lti_handler").Logger(),
	}
}

// Register attaches LTI endpoints to the router group. The launch route is
// called by Moodle with a form post, so it stays outside JWT auth.
func (h *LTIHandler) Register(router fiber.Router) {
	router.Post("/launch", h.launch)
	router.Get("/grades/submit", h.submitGrades)
}

func (h *LTIHandler) launch(c *fiber.Ctx) error {
	idToken := c.FormValue("id_token")
	if idToken == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "missing id_token")
	}

	launch, err := h.verifier.VerifyLaunch(c.Context(), idToken)
	if err != nil {
		if errors.Is(err, lti.ErrNonceReplayed) {
			return utils.SendError(c, fiber.StatusUnauthorized, "launch replayed")
		}
		if errors.Is(err, lti.ErrInvalidLaunch) {
			h.logger.Warn().Err(err).Msg("rejected lti launch")
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid launch token")
		}
		h.logger.Error().Err(err).Msg("launch verification failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	action, err := h.launches.Decide(c.Context(), launch)
	if err != nil {
		h.logger.Error().Err(err).Str("email", launch.Email).Msg("launch decision failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	switch act := action.(type) {
	case service.Redirect:
		return c.Redirect(act.URL, fiber.StatusFound)
	case service.RenderPage:
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.SendString(act.HTML)
	default:
		h.logger.Error().Str("email", launch.Email).Msg("launch produced no action")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func (h *LTIHandler) submitGrades(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "missing token")
	}

	submitted, err := h.launches.SubmitGrades(c.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidLaunchToken) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		h.logger.Error().Err(err).Msg("grade submission failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "grade submission failed")
	}

	return utils.SendSuccess(c, "grades submitted to moodle", fiber.Map{"submitted": submitted})
}
