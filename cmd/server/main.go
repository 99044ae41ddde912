package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/excelytics/backend/internal/config"
	"github.com/excelytics/backend/internal/database"
	"github.com/excelytics/backend/internal/handlers"
	"github.com/excelytics/backend/internal/middleware"
	"github.com/excelytics/backend/internal/storage"
	"github.com/excelytics/backend/pkg/logger"
	"github.com/excelytics/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init()

	cfg := config.Load()
	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is required; refusing to start with unsigned tokens")
	}
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	storageClient, err := newStorage(cfg.Storage)
	if err != nil {
		log.Fatalf("storage initialization failed: %v", err)
	}
	if err := storageClient.Ensure(context.Background()); err != nil {
		log.Fatalf("failed ensuring upload location: %v", err)
	}

	authHandler := handlers.NewAuthHandler(db)
	filesHandler := handlers.NewFilesHandler(db, storageClient)
	analyticsHandler := handlers.NewAnalyticsHandler(db, storageClient)

	authMiddleware := middleware.NewAuthMiddleware(db)

	// body limit leaves headroom over the upload ceiling for multipart framing
	app := fiber.New(fiber.Config{BodyLimit: handlers.MaxUploadSize + 1024*1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	userRoutes := api.Group("/user")
	userRoutes.Post("/register", authHandler.Register)
	userRoutes.Post("/login", authHandler.Login)
	userRoutes.Get("/verify", authMiddleware.RequireAuth, authHandler.Verify)
	userRoutes.Get("/profile", authMiddleware.RequireAuth, authHandler.Profile)
	userRoutes.Put("/profile", authMiddleware.RequireAuth, authHandler.UpdateProfile)
	userRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	excelRoutes := api.Group("/excel", authMiddleware.RequireAuth)
	excelRoutes.Post("/upload", filesHandler.Upload)
	excelRoutes.Get("/files", filesHandler.List)
	excelRoutes.Get("/files/:id/data", filesHandler.Data)
	excelRoutes.Delete("/files/:id", filesHandler.Delete)

	analyticsRoutes := api.Group("/analytics", authMiddleware.RequireAuth)
	analyticsRoutes.Post("/create", analyticsHandler.Create)
	analyticsRoutes.Get("/", analyticsHandler.List)
	analyticsRoutes.Get("/:id", analyticsHandler.Get)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":            cfg.Server.Port,
		"address":         listenAddr,
		"storage_backend": cfg.Storage.Backend,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}

func newStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "minio":
		return storage.NewMinIOStorage(cfg.MinIO)
	case "local", "":
		return storage.NewLocalStorage(cfg.UploadDir), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
