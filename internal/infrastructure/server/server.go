package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/plannerhq/planner/docs"
	"github.com/plannerhq/planner/internal/adapters/botframework"
	httpHandlers "github.com/plannerhq/planner/internal/adapters/http"
	"github.com/plannerhq/planner/internal/adapters/linkstore"
	"github.com/plannerhq/planner/internal/adapters/repository"
	"github.com/plannerhq/planner/internal/adapters/storage"
	"github.com/plannerhq/planner/internal/application/bot"
	"github.com/plannerhq/planner/internal/application/notify"
	"github.com/plannerhq/planner/internal/application/services"
	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/infrastructure/database"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	logger     *logger.Logger
	db         *database.DB
	metrics    *metrics.Metrics
	redis      redis.UniversalClient
	jwks       *keyfunc.JWKS
	dispatcher *notify.Dispatcher
	cancel     context.CancelFunc
}

// New wires repositories, services and handlers from cfg and returns a
// server ready to Start.
func New(cfg *config.Config, db *database.DB, appLogger *logger.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		echo:   echo.New(),
		config: cfg,
		logger: appLogger,
		db:     db,
		cancel: cancel,
	}
	if err := s.wire(ctx); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

func (s *Server) wire(ctx context.Context) error {
	cfg := s.config
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpHandlers.NewValidator()
	e.HTTPErrorHandler = httpHandlers.ErrorHandler(s.logger.Errorw)

	if cfg.Metrics.Enabled {
		s.metrics = metrics.New()
	}

	if cfg.Lock.Type == "redis" || cfg.Bot.LinkStore == "redis" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	var locker lock.Locker
	if cfg.Lock.Type == "redis" {
		locker = lock.NewRedisLocker(s.redis, cfg.Lock.Expiry)
	} else {
		locker = lock.NewMemoryLocker()
	}

	var links ports.LinkStore
	if cfg.Bot.LinkStore == "redis" {
		links = linkstore.NewRedisStore(s.redis)
	} else {
		mem := linkstore.NewMemoryStore()
		if cfg.Bot.SweepEvery > 0 {
			go mem.RunSweeper(ctx, cfg.Bot.SweepEvery)
		}
		links = mem
	}

	connector := botframework.NewConnector(ctx, cfg.Bot)
	var verifier httpHandlers.ActivityVerifier
	switch {
	case cfg.Bot.SkipAuth:
		s.logger.Warnw("Bot activities are not authenticated", "skip_auth", true)
	case cfg.Bot.Enabled():
		s.jwks, err = botframework.FetchJWKS(cfg.Bot.JWKSURL, func(err error) {
			s.logger.Errorw("Failed to refresh bot signing keys", "error", err)
		})
		if err != nil {
			return fmt.Errorf("fetch bot signing keys: %w", err)
		}
		verifier = botframework.NewVerifier(s.jwks, cfg.Bot.AppID, cfg.Bot.Issuer)
	default:
		s.logger.Infow("Bot endpoint disabled, no app credentials configured")
	}

	var notifier ports.Notifier
	if cfg.Notify.Enabled {
		s.dispatcher = notify.NewDispatcher([]notify.Channel{
			notify.NewProactiveBot(connector),
			notify.NewWebhook(&http.Client{Timeout: cfg.Notify.WebhookTimeout}),
		}, cfg.Notify.MaxInFlight, cfg.Notify.WebhookTimeout, s.logger, s.metrics)
		notifier = s.dispatcher
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(s.db)
	deptRepo := repository.NewDepartmentRepository(s.db)
	boardRepo := repository.NewBoardRepository(s.db)
	columnRepo := repository.NewColumnRepository(s.db)
	cardRepo := repository.NewCardRepository(s.db)
	commentRepo := repository.NewCommentRepository(s.db)
	attachmentRepo := repository.NewAttachmentRepository(s.db)

	// Initialize services
	authService := services.NewAuthService(userRepo, cfg.JWT, cfg.Security.BcryptCost, s.logger)
	userService := services.NewUserService(userRepo, links, s.logger)
	adminService := services.NewAdminService(userRepo, deptRepo, store, locker, cfg.Security.BcryptCost, s.logger)
	boardService := services.NewBoardService(boardRepo, userRepo, store, cfg.Board.DefaultColumns, s.logger)
	columnService := services.NewColumnService(columnRepo, boardRepo, userRepo, store, locker, s.logger)
	cardService := services.NewCardService(cardRepo, columnRepo, boardRepo, userRepo, store, locker, s.metrics, s.logger)
	commentService := services.NewCommentService(commentRepo, cardRepo, boardRepo, userRepo, notifier, cfg.App.PublicURL, s.logger)
	attachmentService := services.NewAttachmentService(attachmentRepo, cardRepo, boardRepo, userRepo, store, cfg.Storage, s.logger)
	botService := bot.NewService(userRepo, boardService, cardService, links, cfg.Bot.LinkCodeTTL, cfg.App.PublicURL, s.metrics, s.logger)

	handlers := httpHandlers.Handlers{
		Auth:       httpHandlers.NewAuthHandler(authService, s.logger),
		Users:      httpHandlers.NewUserHandler(userService, s.logger),
		Admin:      httpHandlers.NewAdminHandler(adminService, s.logger),
		Boards:     httpHandlers.NewBoardHandler(boardService, columnService, s.logger),
		Cards:      httpHandlers.NewCardHandler(cardService, s.logger),
		Comments:   httpHandlers.NewCommentHandler(commentService, s.logger),
		Attachment: httpHandlers.NewAttachmentHandler(attachmentService, s.logger),
	}
	if verifier != nil || cfg.Bot.SkipAuth {
		handlers.Bot = httpHandlers.NewBotHandler(botService, verifier, connector, s.logger)
	}

	s.setupMiddleware()
	s.setupRoutes(handlers, authService)
	return nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(handlers httpHandlers.Handlers, tokens httpHandlers.TokenValidator) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	if s.config.Storage.Type == "local" {
		s.echo.Static("/files", s.config.Storage.LocalPath)
	}

	api := s.echo.Group("/api")
	httpHandlers.RegisterRoutes(api, handlers, httpHandlers.Authenticate(tokens, s.logger))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.db.HealthCheck(ctx); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.db.GetConnectionInfo(),
		}
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status = "error"
			checks["redis"] = map[string]interface{}{"status": "error", "error": err.Error()}
		} else {
			checks["redis"] = map[string]interface{}{"status": "ok"}
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.db.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"driver": s.db.Driver(),
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server
func (s *Server) Start(address string) error {
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	s.logger.Infow("Starting server", "address", address)
	return s.echo.Start(address)
}

// Shutdown stops accepting requests, then waits for queued notifications
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	err := s.echo.Shutdown(ctx)

	if s.dispatcher != nil {
		done := make(chan struct{})
		go func() {
			s.dispatcher.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warnw("Abandoning pending notifications", "error", ctx.Err())
		}
	}

	s.release()
	return err
}

func (s *Server) release() {
	s.cancel()
	if s.jwks != nil {
		s.jwks.EndBackground()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}
