package main

import (
	"context"
	"encoding/base64"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mediagrab/api/internal/config"
	"github.com/mediagrab/api/internal/engine"
	"github.com/mediagrab/api/internal/handler"
	"github.com/mediagrab/api/internal/middleware"
	"github.com/mediagrab/api/internal/registry"
	"github.com/mediagrab/api/internal/service"
	"github.com/mediagrab/api/internal/sweeper"
	ws "github.com/mediagrab/api/internal/websocket"
)

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := os.MkdirAll(cfg.Download.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create download dir: %v", err)
	}

	// Cookies from env survive restarts on hosts without persistent
	// disks, where an uploaded file would be lost.
	writeCookiesFromEnv(cfg)

	// Initialize Redis client (rate limiting only)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: Redis not available, rate limiting disabled: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Core components
	reg := registry.New()
	eng := engine.NewYTDLPEngine(cfg.Engine.Binary, cfg.Engine.CookiesFile)

	authService := service.NewAuthService(cfg.Auth.Password, cfg.Auth.TokenSecret, cfg.Auth.TokenLifetime, cfg.Auth.LoginDelay)
	jobService := service.NewJobService(reg, eng, hub, cfg.Download.Dir, cfg.Download.MaxActive, cfg.Download.MaxFileSizeMB)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validate)
	jobHandler := handler.NewJobHandler(jobService, validate)
	mediaHandler := handler.NewMediaHandler(eng, validate)
	settingsHandler := handler.NewSettingsHandler(cfg.Engine.CookiesFile)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    16 * 1024 * 1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes
	app.Post("/auth/login", authHandler.Login)
	app.Post("/auth/logout", authHandler.Logout)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/media/probe", rateLimiter.ProbeLimit(cfg.RateLimit.ProbePerMin), mediaHandler.Probe)

	api.Post("/jobs", rateLimiter.SubmitLimit(cfg.RateLimit.JobsPerHour), jobHandler.Submit)
	api.Get("/jobs/:jobId", jobHandler.Status)
	api.Get("/jobs/:jobId/artifact", jobHandler.Artifact)

	api.Get("/settings/cookies", settingsHandler.CookiesStatus)
	api.Post("/settings/cookies", settingsHandler.UploadCookies)
	api.Delete("/settings/cookies", settingsHandler.ClearCookies)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("jobId"))
	}))

	// Start retention sweeper
	sw := sweeper.New(reg, cfg.Retention.TTL, cfg.Retention.SweepInterval)
	if err := sw.Start(); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}
	defer sw.Stop()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// writeCookiesFromEnv decodes engine.cookies_base64 into the cookies
// file at startup when set.
func writeCookiesFromEnv(cfg *config.Config) {
	encoded := cfg.Engine.CookiesBase64
	if encoded == "" {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		log.Printf("Warning: could not decode cookies base64: %v", err)
		return
	}
	if err := os.WriteFile(cfg.Engine.CookiesFile, raw, 0o600); err != nil {
		log.Printf("Warning: could not write cookies file: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
