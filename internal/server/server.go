// Package server contains the HTTP page handlers of the blog.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yatube/internal/auth"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/database"
	"yatube/internal/featureflags"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/pagination"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "yatube"

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	pageCache      cache.PageCache
	sessions       *auth.Sessions
	featureFlags   *featureflags.Manager
	images         *service.ImageService
	userService    *service.UserService
	feedService    *service.FeedService
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
}

// NewServer connects the database and Redis described by cfg and builds a Server.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: without it the page cache lives in memory and
	// rate limits fail open.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server needs a config and a database")
	}

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	var revocations auth.RevocationStore
	if redisClient != nil {
		revocations = auth.NewRedisRevocationStore(redisClient)
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		pageCache:      cache.NewPageCache(redisClient),
		sessions:       auth.NewSessions(cfg.JWTSecret, auth.DefaultTTL, revocations),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         service.NewImageService(cfg),
	}
	server.userService = service.NewUserService(userRepo)
	server.feedService = service.NewFeedService(postRepo, groupRepo, userRepo, followRepo, pagination.New(cfg.PageSize))
	server.postService = service.NewPostService(postRepo, groupRepo, commentRepo, server.images, server.featureFlags)
	server.commentService = service.NewCommentService(commentRepo, postRepo)
	server.followService = service.NewFollowService(followRepo, userRepo)

	return server, nil
}

// PageCache exposes the home page cache, e.g. for clearing it from tooling.
func (s *Server) PageCache() cache.PageCache {
	return s.pageCache
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.Session(s.sessions, s.sessionCookie()))

	// After Session and tracing so request, user and trace ids reach the logger.
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Static(service.MediaURL, s.images.MediaDir(), fiber.Static{
		ByteRange: true,
		MaxAge:    3600,
	})

	loginRequired := middleware.LoginRequired(s.loginURL())

	app.Get("/", s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/follow/", loginRequired, s.FollowIndex)

	app.Get("/create/", loginRequired, s.PostCreateForm)
	app.Post("/create/", loginRequired,
		middleware.RateLimit(s.redis, s.config.Env, 10, time.Minute, "create_post"), s.PostCreate)

	// Specific /posts/:id/<action>/ routes before the detail route.
	posts := app.Group("/posts/:id")
	posts.Get("/edit/", s.PostEditForm)
	posts.Post("/edit/", s.PostEdit)
	posts.Post("/delete/", s.PostDelete)
	posts.Post("/comment/", loginRequired,
		middleware.RateLimit(s.redis, s.config.Env, 20, time.Minute, "comment"), s.AddComment)
	posts.Get("/", s.PostDetail)

	profile := app.Group("/profile/:username")
	profile.Get("/follow/", loginRequired, s.FollowRedirect)
	profile.Post("/follow/", loginRequired, s.ProfileFollow)
	profile.Get("/unfollow/", loginRequired, s.FollowRedirect)
	profile.Post("/unfollow/", loginRequired, s.ProfileUnfollow)
	profile.Get("/", s.Profile)

	authGroup := app.Group("/auth")
	authGroup.Get("/login/", s.LoginForm)
	authGroup.Post("/login/", middleware.RateLimit(s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Get("/signup/", s.SignupForm)
	authGroup.Post("/signup/", middleware.RateLimit(s.redis, s.config.Env, 3, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/logout/", s.Logout)

	// Anything unmatched renders the custom not-found page.
	app.Use(s.NotFound)
}

// App builds the Fiber app with middleware and routes. Start serves it;
// tests drive it through app.Test.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	maxUploadMB := s.config.ImageMaxUploadSizeMB
	if maxUploadMB <= 0 {
		maxUploadMB = service.DefaultImageMaxUploadSizeMB
	}
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		BodyLimit:    (maxUploadMB + 1) * 1024 * 1024,
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports whether the database and Redis answer. A missing
// Redis client only degrades the service, so it does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// ErrorHandler renders the not-found page for 404s, a JSON error for other
// application errors and the server error page for anything unexpected.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		if fe.Code == fiber.StatusNotFound {
			return s.NotFound(c)
		}
		return models.RespondWithError(c, fe.Code, err)
	}
	if models.IsNotFound(err) {
		return s.NotFound(c)
	}
	if status := models.StatusFor(err); status != fiber.StatusInternalServerError {
		return models.RespondWithError(c, status, err)
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return render(c, fiber.StatusInternalServerError, templateServerError, fiber.Map{
		"error": "Internal server error",
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

func (s *Server) loginURL() string {
	if s.config.LoginURL == "" {
		return "/auth/login/"
	}
	return s.config.LoginURL
}

func (s *Server) sessionCookie() string {
	if s.config.SessionCookie == "" {
		return "yatube_session"
	}
	return s.config.SessionCookie
}

func (s *Server) homeCacheTTL() time.Duration {
	if s.config.HomeCacheTTL <= 0 {
		return cache.HomePageTTL
	}
	return s.config.HomeCacheTTL
}
