package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/uca-sae/sae-go-api/internal/config"
	"github.com/uca-sae/sae-go-api/internal/database"
	"github.com/uca-sae/sae-go-api/internal/handler"
	"github.com/uca-sae/sae-go-api/internal/middleware"
	"github.com/uca-sae/sae-go-api/internal/models"
	"github.com/uca-sae/sae-go-api/internal/repository"
	"github.com/uca-sae/sae-go-api/internal/router"
	"github.com/uca-sae/sae-go-api/internal/service"
	"github.com/uca-sae/sae-go-api/pkg/ai"
	"github.com/uca-sae/sae-go-api/pkg/crypto"
	"github.com/uca-sae/sae-go-api/pkg/github"
	"github.com/uca-sae/sae-go-api/pkg/lti"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.OrgMembership{},
		&models.ModelType{},
		&models.AIModel{},
		&models.TaskLink{},
		&models.Feedback{},
		&models.TaskFeedbackStatus{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	validate := validator.New(validator.WithRequiredStructEnabled())
	cipher := crypto.New(cfg.EncryptionKey)
	ghClient := github.NewClient(logger, github.WithBaseURL(cfg.GithubAPIBaseURL))

	feedbackRepo := repository.NewFeedbackRepository(db)
	taskLinkRepo := repository.NewTaskLinkRepository(db)
	taskStatusRepo := repository.NewTaskStatusRepository(db)
	userRepo := repository.NewUserRepository(db)
	modelRepo := repository.NewModelRepository(db)

	taskStatusService := service.NewTaskStatusService(taskStatusRepo, feedbackRepo, validate, logger)
	feedbackService := service.NewFeedbackService(
		feedbackRepo,
		modelRepo,
		taskLinkRepo,
		userRepo,
		ai.DefaultRegistry(logger),
		cipher,
		ghClient,
		taskStatusService,
		validate,
		logger,
	)
	taskLinkService := service.NewTaskLinkService(taskLinkRepo, userRepo, validate, logger)
	modelService := service.NewModelService(modelRepo, userRepo, cipher, validate, logger)
	userService := service.NewUserService(userRepo, ghClient, validate, logger)
	classroomService := service.NewClassroomService(userRepo, ghClient, logger)

	feedbackHandler := handler.NewFeedbackHandler(feedbackService, logger)
	taskLinkHandler := handler.NewTaskLinkHandler(taskLinkService, logger)
	taskHandler := handler.NewTaskHandler(taskStatusService, logger)
	modelHandler := handler.NewModelHandler(modelService, logger)
	userHandler := handler.NewUserHandler(userService, logger)
	repoHandler := handler.NewRepoHandler(classroomService, logger)

	var ltiHandler *handler.LTIHandler
	if cfg.LTIConfigured() {
		ltiHandler, err = buildLTIHandler(cfg, redisClient, taskLinkRepo, feedbackRepo, userRepo, taskStatusService, logger)
		if err != nil {
			log.Fatalf("failed to configure lti: %v", err)
		}
	} else {
		logger.Warn().Msg("lti platform not configured, launch routes disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		FeedbackHandler: feedbackHandler,
		TaskLinkHandler: taskLinkHandler,
		TaskHandler:     taskHandler,
		ModelHandler:    modelHandler,
		UserHandler:     userHandler,
		RepoHandler:     repoHandler,
		LTIHandler:      ltiHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		AIRateLimiter:   middleware.RateLimit("ai-feedback", 10, time.Minute),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func buildLTIHandler(
	cfg config.Config,
	redisClient *redis.Client,
	taskLinkRepo repository.TaskLinkRepository,
	feedbackRepo repository.FeedbackRepository,
	userRepo repository.UserRepository,
	taskStatusService service.TaskStatusService,
	logger zerolog.Logger,
) (*handler.LTIHandler, error) {
	platform := lti.Platform{
		Issuer:        cfg.LTIIssuer,
		ClientID:      cfg.LTIClientID,
		AuthEndpoint:  cfg.LTIAuthEndpoint,
		TokenEndpoint: cfg.LTITokenEndpoint,
		JWKSEndpoint:  cfg.LTIJWKSEndpoint,
	}

	toolKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.ToolPrivateKeyPEM))
	if err != nil {
		return nil, err
	}

	nonces := lti.NewRedisNonceStore(redisClient, 10*time.Minute)
	verifier, err := lti.NewVerifier(context.Background(), platform, nonces, logger)
	if err != nil {
		return nil, err
	}

	tokens := lti.NewTokenSource(platform, toolKey, nil)
	agsClient := lti.NewAGSClient(tokens, nil, logger)
	issuer := service.NewLaunchTokenIssuer(cfg.JWTSecret, cfg.LaunchTokenTTL)

	launchService := service.NewLTILaunchService(
		taskLinkRepo,
		feedbackRepo,
		userRepo,
		taskStatusService,
		issuer,
		agsClient,
		cfg.FrontendURL,
		logger,
	)

	return handler.NewLTIHandler(verifier, launchService, logger), nil
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
