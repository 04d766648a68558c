package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/uca-sae/sae-go-api/internal/service"
	"github.com/uca-sae/sae-go-api/internal/utils"
)

// RepoHandler proxies GitHub Classroom read endpoints for the frontend.
type RepoHandler struct {
	service service.ClassroomService
	logger  zerolog.Logger
}

func NewRepoHandler(service service.ClassroomService, logger zerolog.Logger) *RepoHandler {
	return &RepoHandler{
		service: service,
		logger:  logger.With().Str("component", "repo_handler").Logger(),
	}
}

// Register attaches classroom proxy endpoints to the router group.
func (h *RepoHandler) Register(router fiber.Router) {
	router.Get("/classrooms", h.classrooms)
	router.Get("/classrooms/:classroomId/assignments", h.assignments)
	router.Get("/assignments/:assignmentId/accepted", h.acceptedAssignments)
	router.Get("/assignments/:assignmentId/grades", h.assignmentGrades)
	router.Get("/workflows/:org/:repo/latest", h.latestWorkflowRun)
	router.Get("/workflows/:org/:repo/runs/:runId/jobs", h.workflowJobs)
}

func (h *RepoHandler) classrooms(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	classrooms, err := h.service.Classrooms(c.Context(), requester, c.Query("orgId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "classrooms retrieved", classrooms)
}

func (h *RepoHandler) assignments(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	assignments, err := h.service.Assignments(c.Context(), requester, c.Params("classroomId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *RepoHandler) acceptedAssignments(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	accepted, err := h.service.AcceptedAssignments(c.Context(), requester, c.Params("assignmentId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "accepted assignments retrieved", accepted)
}

func (h *RepoHandler) assignmentGrades(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	grades, err := h.service.AssignmentGrades(c.Context(), requester, c.Params("assignmentId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "assignment grades retrieved", grades)
}

func (h *RepoHandler) latestWorkflowRun(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	run, err := h.service.LatestWorkflowRun(c.Context(), requester, c.Params("org"), c.Params("repo"))
	if err != nil {
		return h.handleError(c, err)
	}
	if run == nil {
		return utils.SendError(c, fiber.StatusNotFound, "no workflow runs found")
	}

	return utils.SendSuccess(c, "workflow run retrieved", run)
}

func (h *RepoHandler) workflowJobs(c *fiber.Ctx) error {
	requester := userEmailFromContext(c)
	if requester == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "missing requester identity")
	}

	runID, err := strconv.ParseInt(c.Params("runId"), 10, 64)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid run id")
	}

	jobs, err := h.service.WorkflowJobs(c.Context(), requester, c.Params("org"), c.Params("repo"), runID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "workflow jobs retrieved", jobs)
}

func (h *RepoHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "no github token stored for user")
	default:
		h.logger.Error().Err(err).Msg("classroom proxy error")
		return utils.SendError(c, fiber.StatusBadGateway, "github classroom request failed")
	}
}
