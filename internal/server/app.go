// Package server assembles and runs the backend: configuration, database,
// migrations, the auth strategy of the configured mode, and the HTTP server
// with graceful shutdown.
package server

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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/ktb-community/community-be-main/internal/logging"
	"github.com/ktb-community/community-be-main/internal/server/auth"
	"github.com/ktb-community/community-be-main/internal/server/config"
	"github.com/ktb-community/community-be-main/internal/server/httpapi"
	"github.com/ktb-community/community-be-main/internal/server/repositories/repomanager"
	"github.com/ktb-community/community-be-main/internal/server/services"
	"github.com/ktb-community/community-be-main/internal/server/sessions"
	"github.com/ktb-community/community-be-main/internal/server/storage"
	"github.com/ktb-community/community-be-main/internal/server/validation"
)

const shutdownTimeout = 10 * time.Second

// App owns the process-wide collaborators. Everything is wired in NewApp;
// there are no package-level singletons.
type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	httpServer *http.Server
}

// NewApp wires the application from a validated config: database and
// migrations, password hasher, auth strategy, services, and the router.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	validator := validation.NewFieldValidator()

	strategy, authMW, err := buildAuthMode(cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	images := storage.NewImageStore(storage.Settings{
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3AccessKey,
		SecretKey:    cfg.S3SecretKey,
		BaseEndpoint: cfg.S3BaseEndpoint,
		Bucket:       cfg.S3Bucket,
	})

	router := httpapi.NewRouter(httpapi.Options{
		Auth:           services.NewAuthService(db, rm, hasher, validator, strategy, logger),
		Users:          services.NewUserService(db, rm, hasher, validator, logger),
		Images:         images,
		AuthMiddleware: authMW,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.EndpointAddrHTTP,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{config: cfg, logger: logger, db: db, httpServer: httpServer}, nil
}

// buildAuthMode picks the strategy and matching validation middleware. The
// choice is fixed for the process lifetime.
func buildAuthMode(cfg *config.Config, logger logging.Logger) (services.Strategy, func(http.Handler) http.Handler, error) {
	switch cfg.AuthMode {
	case config.TokenMode:
		access, err := auth.NewCodec(cfg.AccessTokenSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("access codec: %w", err)
		}
		refresh, err := auth.NewCodec(cfg.RefreshTokenSecret)
		if err != nil {
			return nil, nil, fmt.Errorf("refresh codec: %w", err)
		}
		strategy := services.NewTokenStrategy(access, refresh,
			cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration)
		return strategy, httpapi.BearerAuth(access), nil

	case config.SessionMode:
		var store sessions.Store
		if cfg.RedisAddr != "" {
			store = sessions.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}))
		} else {
			store = sessions.NewMemoryStore()
		}
		strategy := services.NewSessionStrategy(store, cfg.SessionMaxAge)
		return strategy, httpapi.SessionAuth(store, logger), nil

	default:
		return nil, nil, fmt.Errorf("unknown auth mode %q", cfg.AuthMode)
	}
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until the context is canceled or a signal arrives, then
// shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "starting server",
		"addr", app.config.EndpointAddrHTTP, "auth_mode", app.config.AuthMode)

	errCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	app.logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "http shutdown", "error", err)
	}

	return app.db.Close()
}
