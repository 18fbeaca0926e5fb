package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"

	_ "notesu/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"notesu/internal/auth"
	"notesu/internal/cache"
	"notesu/internal/config"
	"notesu/internal/db"
	"notesu/internal/handler"
	"notesu/internal/model"
	"notesu/internal/repository"
	"notesu/internal/router"
	"notesu/internal/service"
	"notesu/internal/storage"
)

// @title Notes-U API
// @version 1.0
// @description Student note-sharing API: session-authenticated upload, listing and management of course notes.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey SessionCookie
// @in header
// @name Cookie
// @description Session cookie issued by /auth/login.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	gormDB, err := db.NewPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, dropping all tables...")
		for _, table := range []interface{}{&model.Note{}, &model.User{}} {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Printf("Warning: Failed to drop table (may not exist): %v", err)
			}
		}
		log.Println("Tables dropped")
	}

	// Run migrations for all models
	if err := gormDB.AutoMigrate(&model.User{}, &model.Note{}); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var objectStore storage.ObjectStorage
	if cfg.S3Bucket != "" {
		objectStore, err = storage.NewS3Storage(context.Background(), storage.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			log.Fatalf("object storage init: %v", err)
		}
	} else {
		log.Println("S3_BUCKET not set, using in-memory object storage (development only)")
		objectStore = storage.NewMemoryStorage()
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	noteRepo := repository.NewNoteRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	sessionStore := auth.NewRedisSessionStore(cacheClient)

	// Initialize services
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	authService := service.NewAuthService(userRepo, jwtService, sessionStore, cfg.SessionTTL, cfg.DBTimeout)
	noteService := service.NewNoteService(noteRepo, objectStore, cacheClient, logger, service.NoteServiceOptions{
		MaxUploadBytes: cfg.MaxUploadBytes,
		PageSize:       cfg.DefaultPageSize,
		CacheTTL:       cfg.NoteCacheTTL,
		DBTimeout:      cfg.DBTimeout,
		StorageTimeout: cfg.StorageTimeout,
	})

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	noteHandler := handler.NewNoteHandler(noteService)

	// Register routes
	router.Register(e, cfg, sessionStore, authHandler, noteHandler)

	// Log swagger full path
	swaggerHost := cfg.SwaggerHost
	if swaggerHost == "" {
		swaggerHost = "http://localhost:" + cfg.ServerPort
	} else if !strings.HasPrefix(swaggerHost, "http://") && !strings.HasPrefix(swaggerHost, "https://") {
		swaggerHost = "http://" + swaggerHost
	}
	log.Printf("Swagger documentation available at: %s/swagger/index.html", swaggerHost)

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
