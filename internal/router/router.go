package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/uca-sae/sae-go-api/internal/config"
	"github.com/uca-sae/sae-go-api/internal/handler"
	"github.com/uca-sae/sae-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	FeedbackHandler *handler.FeedbackHandler
	TaskLinkHandler *handler.TaskLinkHandler
	TaskHandler     *handler.TaskHandler
	ModelHandler    *handler.ModelHandler
	UserHandler     *handler.UserHandler
	RepoHandler     *handler.RepoHandler
	LTIHandler      *handler.LTIHandler
	JWTMiddleware   fiber.Handler
	AIRateLimiter   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// LTI launch and grade passback. Moodle posts here without our JWT;
	// the routes carry their own token verification.
	if deps.LTIHandler != nil {
		lti := app.Group("/api/lti")
		deps.LTIHandler.Register(lti)
	}

	// AI feedback generation and review
	if deps.FeedbackHandler != nil {
		feedback := app.Group("/api/feedback", jwtMiddleware)
		if deps.AIRateLimiter != nil {
			feedback.Use(deps.AIRateLimiter)
		}
		deps.FeedbackHandler.Register(feedback)
	}

	// Moodle/Classroom task links
	if deps.TaskLinkHandler != nil {
		links := app.Group("/api/task-links", jwtMiddleware)
		deps.TaskLinkHandler.Register(links)
	}

	// Delivery rollups per Classroom assignment
	if deps.TaskHandler != nil {
		tasks := app.Group("/api/tasks", jwtMiddleware)
		deps.TaskHandler.Register(tasks)
	}

	// AI model credentials
	if deps.ModelHandler != nil {
		aiModels := app.Group("/api/models", jwtMiddleware)
		deps.ModelHandler.Register(aiModels)
	}

	// Users and org memberships
	if deps.UserHandler != nil {
		users := app.Group("/api/users", jwtMiddleware)
		deps.UserHandler.Register(users)
	}

	// GitHub Classroom read proxy
	if deps.RepoHandler != nil {
		repos := app.Group("/api/repos", jwtMiddleware)
		deps.RepoHandler.Register(repos)
	}
}
