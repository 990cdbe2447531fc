package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/gate"
	httpapi "github.com/aussiebroadwan/gradebook/internal/gradebook/http"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store/drivers/postgres"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store/drivers/redis"
	"github.com/aussiebroadwan/gradebook/internal/gradebook/store/drivers/sqlite"
	"github.com/aussiebroadwan/gradebook/pkg/cryptox"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
	"github.com/aussiebroadwan/gradebook/pkg/jwtx"
	"github.com/aussiebroadwan/gradebook/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the gradebook service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	codec    *jwtx.Codec
	denylist jwtx.Denylist
	closers  []io.Closer

	// Services
	auditService        *service.AuditService
	authService         *service.AuthService
	mfaService          *service.MFAService
	accountService      *service.AccountService
	gradeService        *service.GradeService
	studentService      *service.StudentService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router

	running bool // background workers started
}

// New validates cfg and builds the application. Nothing is served until Run.
func New(ctx context.Context, cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gradebook",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	cryptox.SetHashConcurrency(cfg.HashConcurrency)

	// Validate already rejected malformed entries.
	proxies, _ := httpx.ParseTrustedProxies(cfg.TrustedProxies)
	httpx.SetTrustedProxies(proxies)
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		app.logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	} else {
		app.logger.Warn("no master key configured, enrolled TOTP secrets will not survive a restart")
	}

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initTokens(ctx); err != nil {
		_ = app.closeAll()
		return nil, err
	}

	app.initServices()

	if err := app.bootstrap(ctx); err != nil {
		_ = app.closeAll()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Handler exposes the router, mainly for in-process tests.
func (app *Application) Handler() http.Handler {
	return app.router
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.startBackground()

	app.logger.Info("gradebook service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"driver", app.cfg.DatabaseDriver,
		"denylist", app.cfg.Denylist,
		"transport", app.cfg.TokenTransport,
		"registration", app.cfg.RegistrationMode,
	)

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
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopBackground()
			_ = app.closeAll()
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
	app.logger.Info("shutting down gradebook service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Requests are done; flush audit entries before the store goes away.
	app.stopBackground()

	if err := app.closeAll(); err != nil {
		return err
	}

	app.logger.Info("gradebook service stopped")
	return nil
}

func (app *Application) startBackground() {
	if app.running {
		return
	}
	app.auditService.Start()
	app.housekeepingService.Start()
	app.running = true
}

func (app *Application) stopBackground() {
	if !app.running {
		return
	}
	app.housekeepingService.Stop()
	app.auditService.Stop()
	app.running = false
}

// closeAll closes the denylist and database, in reverse order of opening.
func (app *Application) closeAll() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Error("error closing resource", "error", err)
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(app.cfg.DatabaseFile)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize %s database: %w", app.cfg.DatabaseDriver, err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	if err := db.ApplyMigrations(ctx); err != nil {
		_ = app.closeAll()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

// initTokens builds the session codec and the revocation denylist.
func (app *Application) initTokens(ctx context.Context) error {
	secret, err := LoadJWTSecret(app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.codec, err = jwtx.NewCodec(secret, jwtx.WithIssuer(app.cfg.Issuer))
	if err != nil {
		return fmt.Errorf("failed to initialize token codec: %w", err)
	}

	switch app.cfg.Denylist {
	case DenylistRedis:
		rd, err := redis.NewDenylist(ctx, redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect redis denylist: %w", err)
		}
		app.denylist = rd
		app.closers = append(app.closers, rd)
	case DenylistNone:
		app.logger.Warn("token revocation disabled, logout only clears the cookie")
		app.denylist = jwtx.NopDenylist{}
	default:
		app.denylist = store.NewDenylistAdapter(app.db)
	}

	app.logger.Info("session tokens configured",
		"issuer", app.cfg.Issuer,
		"ttl", app.cfg.TokenTTL,
		"denylist", app.cfg.Denylist,
	)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.auditService = service.NewAuditService(app.db, app.logger, app.cfg.AuditBuffer)

	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.MFAIssuer,
		Audit:  app.auditService,
	}
	app.authService = &service.AuthService{
		Store:    app.db,
		Codec:    app.codec,
		Denylist: app.denylist,
		Audit:    app.auditService,
		MFA:      app.mfaService,
		TTL:      app.cfg.TokenTTL,
		Mode:     app.cfg.RegistrationMode,
	}
	app.accountService = &service.AccountService{Store: app.db, Audit: app.auditService}
	app.gradeService = &service.GradeService{Store: app.db, Audit: app.auditService}
	app.studentService = &service.StudentService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db, Logger: app.logger}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// bootstrap creates the configured first admin, if any.
func (app *Application) bootstrap(ctx context.Context) error {
	created, err := app.bootstrapService.EnsureAdmin(ctx, service.BootstrapAdmin{
		Email:    app.cfg.BootstrapAdminEmail,
		Password: app.cfg.BootstrapAdminPassword,
		Name:     app.cfg.BootstrapAdminName,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if created {
		app.logger.Info("bootstrap admin created", "email", app.cfg.BootstrapAdminEmail)
	}

	if app.cfg.RegistrationMode == service.RegistrationAdmin {
		ok, err := app.bootstrapService.IsBootstrapped(ctx)
		if err != nil {
			return fmt.Errorf("failed to check admins: %w", err)
		}
		if !ok {
			app.logger.Warn("registration requires an admin but none exists, set GRADEBOOK_BOOTSTRAP_ADMIN_EMAIL")
		}
	}
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	g := gate.New(app.codec, app.cfg.TokenTransport.Extractor(), app.denylist, app.logger)

	router := httpapi.NewRouter(
		g,
		BuildVersion,
		app.db,
		app.logger,
		app.cfg.CORSOrigins,
	)

	// Wire services to router
	router.Transport = app.cfg.TokenTransport
	router.CookieSecure = app.cfg.CookieSecure
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.AccountService = app.accountService
	router.GradeService = app.gradeService
	router.StudentService = app.studentService
	router.AuditService = app.auditService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
}
