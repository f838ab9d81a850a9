package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/config"
	"github.com/ridewell/benefit-api/internal/handlers"
	"github.com/ridewell/benefit-api/internal/ingest"
	"github.com/ridewell/benefit-api/internal/middleware"
	"github.com/ridewell/benefit-api/internal/migration"
	"github.com/ridewell/benefit-api/internal/models"
	"github.com/ridewell/benefit-api/internal/notification"
	"github.com/ridewell/benefit-api/internal/repository"
	"github.com/ridewell/benefit-api/internal/routes"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config *config.Config
	db     *sql.DB
	logger zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Create the application instance.
	app := &application{
		config: cfg,
		db:     db,
		logger: logger,
	}

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	// Repositories
	inviteRepo := repository.NewInviteRepository(app.db)
	profileRepo := repository.NewProfileRepository(app.db)
	roleRepo := repository.NewRoleRepository(app.db)
	companyRepo := repository.NewCompanyRepository(app.db)
	benefitRepo := repository.NewBenefitRepository(app.db)
	bikeRepo := repository.NewBikeRepository(app.db)
	otpRepo := repository.NewOTPRepository(app.db)

	// Mailer for sign-in codes
	otpMailer, err := notification.NewSMTPOTPMailer(app.config.Email)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure otp mailer")
	}

	// The bulk-ingestion pipeline writes through the invite repository;
	// the unique index on email backs its idempotency guarantee.
	pipeline := ingest.NewPipeline(inviteRepo, logger)

	ingestRoles := models.NormalizeRoles(toRoles(app.config.Ingest.AllowedRoles))
	if !models.IsValidRoleList(ingestRoles) {
		logger.Fatal().Strs("roles", app.config.Ingest.AllowedRoles).Msg("invalid ingest allowed_roles")
	}

	// Handlers
	bulkHandler := handlers.NewBulkHandler(pipeline, profileRepo, logger)
	registerHandler := handlers.NewRegisterHandler(inviteRepo, profileRepo, roleRepo, otpRepo, otpMailer, app.config.OTP.TTL, app.config.JWTSecret, logger)
	benefitHandler := handlers.NewBenefitHandler(benefitRepo, bikeRepo, logger)
	companyHandler := handlers.NewCompanyHandler(companyRepo, logger)
	bikeHandler := handlers.NewBikeHandler(bikeRepo, logger)

	return routes.NewRouter(roleRepo, ingestRoles, bulkHandler, registerHandler, benefitHandler, companyHandler, bikeHandler, logger)
}

func toRoles(names []string) []models.UserRole {
	roles := make([]models.UserRole, 0, len(names))
	for _, name := range names {
		roles = append(roles, models.UserRole(name))
	}
	return roles
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}
}
