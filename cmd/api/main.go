package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "tpm-hub/docs" // This is for Swagger
	"tpm-hub/internal/auth"
	"tpm-hub/internal/config"
	"tpm-hub/internal/handlers"
	"tpm-hub/internal/logger"
	"tpm-hub/internal/middleware"
	"tpm-hub/internal/models"
	"tpm-hub/internal/repository"
	"tpm-hub/internal/scheduler"
	"tpm-hub/internal/service"
	"tpm-hub/internal/store"
	"tpm-hub/internal/uploads"

	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title TPM-Hub API
// @version 1.0
// @description Backend API for the TPM-Hub improvement suggestion and review platform
// @termsOfService http://swagger.io/terms/

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// confirmationTTL bounds how long a recall/delete confirmation token
// stays valid before the two-step flow must be restarted.
const confirmationTTL = 2 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"store_driver", cfg.Store.Driver,
		"log_level", cfg.Log.Level,
	)

	// Initialize the record store
	recordStore, closeStore, err := openStore(&cfg.Store)
	if err != nil {
		slog.Error("Failed to open record store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			slog.Error("Failed to close record store", "error", err)
		}
	}()

	saver, err := uploads.NewSaver(cfg.Store.UploadDir)
	if err != nil {
		slog.Error("Failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(recordStore)
	suggestionRepo := repository.NewSuggestionRepository(recordStore)
	circleRepo := repository.NewCircleRepository(recordStore)
	levelRepo := repository.NewLevelRepository(recordStore)
	sessionRepo := repository.NewSessionRepository(recordStore)
	auditRepo := repository.NewAuditRepository(recordStore)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	confirmBroker := service.NewConfirmationBroker(confirmationTTL)
	userService := service.NewUserService(userRepo, sessionRepo, auditRepo, authService, confirmBroker, cfg.Bootstrap, cfg.JWT.Expiration)
	suggestionService := service.NewSuggestionService(suggestionRepo, auditRepo, confirmBroker)
	levelService := service.NewLevelService(levelRepo, suggestionRepo)
	reviewService := service.NewReviewService(suggestionRepo, userRepo, levelService, auditRepo)
	leaderboardService := service.NewLeaderboardService(suggestionRepo, userRepo, cfg.Report.Departments)
	circleService := service.NewCircleService(circleRepo)

	// Make sure the root account exists before the first request
	if err := userService.EnsureRootAccount(); err != nil {
		slog.Error("Failed to ensure root account", "error", err)
		os.Exit(1)
	}

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(sessionRepo, confirmBroker, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo, userRepo)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	suggestionHandler := handlers.NewSuggestionHandler(suggestionService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	levelHandler := handlers.NewLevelHandler(levelService)
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService)
	adminHandler := handlers.NewAdminHandler(userService, auditRepo)
	circleHandler := handlers.NewCircleHandler(circleService)
	uploadHandler := handlers.NewUploadHandler(saver)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	if cfg.App.EnableRegistration {
		mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	}

	authenticated := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(h)
	}
	reviewerOnly := middleware.RequireRole(models.RoleReviewer, models.RoleRoot)
	rootOnly := middleware.RequireRole(models.RoleRoot)

	// Account routes
	mux.Handle("POST /api/v1/auth/logout", authenticated(authHandler.Logout))
	mux.Handle("GET /api/v1/auth/me", authenticated(authHandler.Me))
	mux.Handle("PUT /api/v1/auth/password", authenticated(authHandler.ChangePassword))

	// Suggestion routes
	mux.Handle("POST /api/v1/suggestions", authenticated(suggestionHandler.Create))
	mux.Handle("GET /api/v1/suggestions/mine", authenticated(suggestionHandler.ListMine))
	mux.Handle("POST /api/v1/suggestions/recall/confirm", authenticated(suggestionHandler.ConfirmRecall))
	mux.Handle("POST /api/v1/suggestions/delete/confirm", authenticated(suggestionHandler.ConfirmDelete))
	mux.Handle("GET /api/v1/suggestions/{id}", authenticated(suggestionHandler.Get))
	mux.Handle("PUT /api/v1/suggestions/{id}", authenticated(suggestionHandler.Update))
	mux.Handle("POST /api/v1/suggestions/{id}/recall", authenticated(suggestionHandler.BeginRecall))
	mux.Handle("POST /api/v1/suggestions/{id}/delete", authenticated(suggestionHandler.BeginDelete))

	// Review routes
	mux.Handle("GET /api/v1/review/suggestions",
		authMw.Authenticate(reviewerOnly(http.HandlerFunc(reviewHandler.List))))
	mux.Handle("POST /api/v1/review/suggestions/{id}/start",
		authMw.Authenticate(reviewerOnly(http.HandlerFunc(reviewHandler.StartReview))))
	mux.Handle("POST /api/v1/review/suggestions/{id}/approve",
		authMw.Authenticate(reviewerOnly(http.HandlerFunc(reviewHandler.Approve))))
	mux.Handle("POST /api/v1/review/suggestions/{id}/reject",
		authMw.Authenticate(reviewerOnly(http.HandlerFunc(reviewHandler.Reject))))

	// Level routes
	mux.Handle("GET /api/v1/levels/me", authenticated(levelHandler.MyLevel))
	mux.Handle("GET /api/v1/levels/ladder", authenticated(levelHandler.GetLadder))

	// Leaderboard routes
	mux.Handle("GET /api/v1/leaderboard/monthly", authenticated(leaderboardHandler.Monthly))
	mux.Handle("GET /api/v1/leaderboard/departments", authenticated(leaderboardHandler.Departments))
	mux.Handle("GET /api/v1/leaderboard/activity", authenticated(leaderboardHandler.Activity))

	// Circle activity routes
	mux.Handle("POST /api/v1/circles", authenticated(circleHandler.Create))
	mux.Handle("GET /api/v1/circles", authenticated(circleHandler.List))

	// Upload routes
	mux.Handle("POST /api/v1/uploads", authenticated(uploadHandler.Upload))

	// Admin routes
	mux.Handle("GET /api/v1/admin/users",
		authMw.Authenticate(rootOnly(http.HandlerFunc(adminHandler.ListUsers))))
	mux.Handle("POST /api/v1/admin/users/delete",
		authMw.Authenticate(rootOnly(http.HandlerFunc(adminHandler.BeginBulkDelete))))
	mux.Handle("POST /api/v1/admin/users/delete/confirm",
		authMw.Authenticate(rootOnly(http.HandlerFunc(adminHandler.ConfirmBulkDelete))))
	mux.Handle("PUT /api/v1/admin/levels",
		authMw.Authenticate(rootOnly(http.HandlerFunc(levelHandler.SaveLadder))))
	mux.Handle("GET /api/v1/admin/audit",
		authMw.Authenticate(rootOnly(http.HandlerFunc(adminHandler.AuditLog))))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`)); err != nil {
			slog.Error("Failed to write health check response", "error", err)
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

// openStore builds the configured store backend. The returned closer
// is a no-op for the file driver.
func openStore(cfg *config.StoreConfig) (store.Store, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres connection: %w", err)
		}
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			return nil, nil, fmt.Errorf("failed to ping postgres: %w", err)
		}
		return store.NewPGStore(db), db.Close, nil
	default:
		fs, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return fs, func() error { return nil }, nil
	}
}
