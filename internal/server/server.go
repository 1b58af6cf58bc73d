// Package server contains the HTTP handlers for the memorial post API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"memoria/internal/ai"
	"memoria/internal/cache"
	"memoria/internal/config"
	"memoria/internal/database"
	"memoria/internal/middleware"
	"memoria/internal/models"
	"memoria/internal/repository"
	"memoria/internal/search"
	"memoria/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const dbRetryInterval = 10 * time.Second

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	searchClient   *search.Client
	aiClient       *ai.Client
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	// The database can be absent at boot. A background loop keeps
	// retrying and installs the connection (and everything built on it)
	// once it succeeds, so all access goes through the mutex.
	mu            sync.RWMutex
	db            *gorm.DB
	userRepo      repository.UserRepository
	imageRepo     repository.ImageRepository
	platformRepo  repository.PlatformRepository
	postService   *service.PostService
	userService   *service.UserService
	exportService *service.ExportService
}

// NewServer creates a server instance. Database unavailability is not
// fatal: the server comes up degraded and keeps retrying in the
// background once started.
func NewServer(cfg *config.Config) (*Server, error) {
	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	prom := middleware.InitMetrics("memoria-api")

	server := &Server{
		config:         cfg,
		redis:          redisClient,
		promMiddleware: prom,
		searchClient:   search.NewClient(cfg.SerpAPIKey),
		aiClient:       ai.NewClient(cfg.HuggingFaceAPIKey),
	}

	db, err := database.Connect(cfg)
	if err != nil {
		middleware.Logger.Warn("database unavailable, starting degraded",
			slog.Any("error", err))
		return server, nil
	}
	if err := database.Bootstrap(db); err != nil {
		return nil, fmt.Errorf("database bootstrap failed: %w", err)
	}
	server.installDB(db)

	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized
// dependencies. Used by tests and by bootstrap code that manages the
// DB/Redis lifecycle itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("memoria-api"),
		searchClient:   search.NewClient(cfg.SerpAPIKey),
		aiClient:       ai.NewClient(cfg.HuggingFaceAPIKey),
	}
	if db != nil {
		server.installDB(db)
	}
	return server, nil
}

// installDB wires the repositories and services on top of a live
// connection.
func (s *Server) installDB(db *gorm.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db = db
	s.userRepo = repository.NewUserRepository(db)
	s.imageRepo = repository.NewImageRepository(db)
	s.platformRepo = repository.NewPlatformRepository(db)
	postRepo := repository.NewPostRepository(db)
	s.postService = service.NewPostService(postRepo, s.config.UploadDir)
	s.userService = service.NewUserService(s.userRepo)
	s.exportService = service.NewExportService(db, s.config.ExportDir)
}

func (s *Server) database() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// retryDB keeps attempting to connect until it succeeds or the server
// shuts down.
func (s *Server) retryDB(ctx context.Context) {
	ticker := time.NewTicker(dbRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		db, err := database.Connect(s.config)
		if err != nil {
			middleware.Logger.Warn("database still unavailable",
				slog.Any("error", err))
			continue
		}
		if err := database.Bootstrap(db); err != nil {
			middleware.Logger.Error("database bootstrap failed",
				slog.Any("error", err))
			continue
		}
		s.installDB(db)
		middleware.Logger.Info("database connection established, leaving degraded mode")
		return
	}
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Memoria Backend Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// User management
	users := api.Group("/auth/users", s.AuthRequired())
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/", s.GetAllUsers)
	users.Get("/:id", s.GetUserProfile)
	users.Delete("/:id", s.DeleteUser)

	// Public post browsing
	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/:id/images", s.GetPostImages)
	publicPosts.Get("/:id/platforms", s.GetPostPlatforms)
	publicPosts.Get("/:id", s.GetPost)

	// Protected post writes
	posts := api.Group("/posts", s.AuthRequired())
	posts.Post("/", s.CreatePost)
	// Specific /:id/:resource routes BEFORE generic /:id routes
	posts.Put("/:id/platforms", s.ReplacePostPlatforms)
	posts.Post("/:id/platforms/:platformId", s.AddPostPlatform)
	posts.Delete("/:id/platforms/:platformId", s.RemovePostPlatform)
	posts.Delete("/:id/images/:imageId", s.UnlinkPostImage)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Image catalog
	images := api.Group("/images")
	images.Get("/", s.GetImages)
	images.Post("/", s.AuthRequired(), s.CreateImage)
	images.Delete("/:id", s.AuthRequired(), s.DeleteImage)

	// Platform catalog
	platforms := api.Group("/platforms")
	platforms.Get("/", s.GetPlatforms)
	platforms.Post("/", s.AuthRequired(), s.CreatePlatform)
	platforms.Put("/:id", s.AuthRequired(), s.UpdatePlatform)
	platforms.Delete("/:id", s.AuthRequired(), s.DeletePlatform)

	// Spreadsheet export
	api.Get("/export/excel", s.AuthRequired(), s.ExportExcel)

	// Research and text generation
	api.Get("/search", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.Search)
	api.Get("/search/images", s.AuthRequired(), middleware.RateLimit(
		s.redis, 10, time.Minute, "search_images"), s.SearchImages)
	api.Post("/generate", s.AuthRequired(), middleware.RateLimit(
		s.redis, 5, time.Minute, "generate"), s.Generate)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. A missing database
// reports degraded with 503 so load balancers hold traffic while the
// retry loop works.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	db := s.database()
	switch {
	case db == nil:
		dbStatus = "unavailable"
	default:
		sqlDB, err := db.DB()
		if err != nil {
			dbStatus = "unhealthy"
		} else if err := sqlDB.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
		}
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is optional; absence degrades rate limiting and logout
		// but not core function.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "degraded"
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

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := ""
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token claims"))
		}

		if issuer, issuerOk := claims["iss"].(string); !issuerOk || issuer != tokenIssuer {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token issuer"))
		}
		if audience, audienceOk := claims["aud"].(string); !audienceOk || audience != tokenAudience {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid token audience"))
		}

		sub, ok := claims["sub"].(string)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid subject claim"))
		}
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid user ID in token"))
		}

		// Check JTI for revocation
		if jti, exists := claims["jti"].(string); exists && jti != "" {
			if s.redis != nil {
				isBlacklisted, err := s.redis.Exists(c.Context(), "blacklist:"+jti).Result()
				if err == nil && isBlacklisted > 0 {
					return models.RespondWithError(c, fiber.StatusUnauthorized,
						models.NewUnauthorizedError("Token has been revoked"))
				}
			}
		}

		c.Locals("userID", uint(userID))
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, uint(userID))
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName: "Memoria API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			middleware.Logger.Error("unhandled error", slog.Any("error", err))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.database() == nil {
		go s.retryDB(ctx)
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.Any("error", err))
		}
	}

	if db := s.database(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.Any("error", cerr))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.Any("error", rerr))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
