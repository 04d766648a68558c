package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/uca-sae/sae-go-api/internal/config"
	"github.com/uca-sae/sae-go-api/internal/handler"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/internal/router"
	"github.com/uca-sae/sae-go-api/internal/service"
)

func setupTaskLinkApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.OrgMembership{}, &models.TaskLink{}))

	require.NoError(t, db.Create(&models.User{
		Email: "profe@uca.edu",
		Name:  "Profesora",
		Organizations: []models.OrgMembership{
			{OrgID: "42", OrgName: "uca-poo", Role: models.RoleTeacher, IsActive: true},
		},
	}).Error)

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	taskLinkRepo := repository.NewTaskLinkRepository(db)
	userRepo := repository.NewUserRepository(db)
	taskLinkService := service.NewTaskLinkService(taskLinkRepo, userRepo, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		TaskLinkHandler: handler.NewTaskLinkHandler(taskLinkService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_email", "profe@uca.edu")
			c.Locals("user_role", models.RoleTeacher)
			return c.Next()
		},
	})

	return app
}

func linkPayload() map[string]string {
	return map[string]string{
		"idTaskGithubClassroom": "task-1",
		"idClassroom":           "class-1",
		"orgId":                 "42",
		"orgName":               "uca-poo",
		"url_Invitation":        "https://classroom.github.com/a/abc123",
		"emailOwner":            "profe@uca.edu",
		"idTaskMoodle":          "77",
		"idCursoMoodle":         "12",
		"issuer":                "https://moodle.uca.edu",
	}
}

func postJSON(t *testing.T, app *fiber.App, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestTaskLinkHandlerCreateAndResolve(t *testing.T) {
	app := setupTaskLinkApp(t)

	resp := postJSON(t, app, "/api/task-links/", linkPayload())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/task-links/resolve?taskMoodle=77&issuer=https://moodle.uca.edu", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			IDTaskGithubClassroom string `json:"idTaskGithubClassroom"`
			InvitationURL         string `json:"url_Invitation"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.Equal(t, "task-1", payload.Data.IDTaskGithubClassroom)
	require.Equal(t, "https://classroom.github.com/a/abc123", payload.Data.InvitationURL)
}

func TestTaskLinkHandlerDuplicateTripleConflicts(t *testing.T) {
	app := setupTaskLinkApp(t)

	resp := postJSON(t, app, "/api/task-links/", linkPayload())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = postJSON(t, app, "/api/task-links/", linkPayload())
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestTaskLinkHandlerRejectsUnknownOwner(t *testing.T) {
	app := setupTaskLinkApp(t)

	payload := linkPayload()
	payload["emailOwner"] = "nobody@uca.edu"
	resp := postJSON(t, app, "/api/task-links/", payload)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestTaskLinkHandlerValidatesPayload(t *testing.T) {
	app := setupTaskLinkApp(t)

	payload := linkPayload()
	payload["url_Invitation"] = "not-a-url"
	resp := postJSON(t, app, "/api/task-links/", payload)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestTaskLinkHandlerExistsLookup(t *testing.T) {
	app := setupTaskLinkApp(t)

	resp := postJSON(t, app, "/api/task-links/", linkPayload())
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/task-links/exists?taskMoodle=77&issuer=https://moodle.uca.edu", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			Exists bool `json:"exists"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.True(t, payload.Data.Exists)
}
