package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/pushprotocol/authd/internal/auth/http"
	"github.com/pushprotocol/authd/internal/auth/service"
	"github.com/pushprotocol/authd/internal/auth/store"
	"github.com/pushprotocol/authd/internal/auth/store/drivers/sqlite"
	"github.com/pushprotocol/authd/internal/auth/webauthnx"
	"github.com/pushprotocol/authd/pkg/jwtx"
	"github.com/pushprotocol/authd/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	keypair *jwtx.EdDSAKeypair

	// Services
	tokenService        *service.TokenService
	userService         *service.UserService
	challengeService    *service.ChallengeService
	passkeyService      *service.PasskeyService
	oauthService        *service.OAuthService
	vaultService        *service.VaultService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "authd",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.FrontendURL == "" {
		return nil, fmt.Errorf("FRONTEND_URL is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initSigningKey(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initSigningKey loads the session signing key, or generates an ephemeral one
// when no key file is configured. Ephemeral keys invalidate sessions across
// restarts.
func (app *Application) initSigningKey() error {
	if app.cfg.SigningKeyFile == "" {
		keypair, err := jwtx.NewEphemeralEdDSAKeypair("session-1", app.cfg.Issuer)
		if err != nil {
			return fmt.Errorf("failed to generate session key: %w", err)
		}
		app.keypair = keypair
		app.logger.Warn("using ephemeral session signing key; sessions will not survive a restart")
		return nil
	}

	pemKey, err := os.ReadFile(app.cfg.SigningKeyFile)
	if err != nil {
		return fmt.Errorf("failed to read signing key file: %w", err)
	}
	keypair, err := jwtx.NewEdDSAKeypairFromPEM("session-1", app.cfg.Issuer, pemKey)
	if err != nil {
		return fmt.Errorf("failed to load signing key: %w", err)
	}
	app.keypair = keypair
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{Store: app.db}
	app.userService = &service.UserService{Store: app.db}
	app.challengeService = &service.ChallengeService{Store: app.db}
	app.vaultService = &service.VaultService{Store: app.db}

	app.passkeyService = &service.PasskeyService{
		Store:      app.db,
		Verifier:   &webauthnx.Verifier{RPDisplayName: app.cfg.RPDisplayName},
		Origins:    &service.OriginResolver{Origins: app.cfg.AllowedOrigins, RPIDs: app.cfg.AllowedRPIDs},
		Challenges: app.challengeService,
	}

	app.oauthService = &service.OAuthService{
		Tokens: app.tokenService,
		Users:  app.userService,
		Signer: app.keypair,
		Provider: service.NewGitHubProvider(
			app.cfg.ProviderClientID,
			app.cfg.ProviderClientSecret,
			app.cfg.ProviderCallbackURL,
		),
		Issuer:      app.cfg.Issuer,
		FrontendURL: app.cfg.FrontendURL,
		SuccessPath: app.cfg.SuccessPath,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keypair,
		app.keypair,
		app.cfg.FrontendURL,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.OAuthService = app.oauthService
	router.PasskeyService = app.passkeyService
	router.VaultService = app.vaultService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
