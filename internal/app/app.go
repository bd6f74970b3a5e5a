// Package app initializes and runs the party planner server.
// It configures logging, storage, authentication, metrics and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/partyplanner/internal/auth"
	"github.com/patric-chuzhbe/partyplanner/internal/config"
	"github.com/patric-chuzhbe/partyplanner/internal/db/jsondb"
	"github.com/patric-chuzhbe/partyplanner/internal/db/memorystorage"
	"github.com/patric-chuzhbe/partyplanner/internal/db/postgresdb"
	"github.com/patric-chuzhbe/partyplanner/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/partyplanner/internal/db/storage"
	"github.com/patric-chuzhbe/partyplanner/internal/grpcserver"
	"github.com/patric-chuzhbe/partyplanner/internal/ipchecker"
	"github.com/patric-chuzhbe/partyplanner/internal/logger"
	"github.com/patric-chuzhbe/partyplanner/internal/metrics"
	"github.com/patric-chuzhbe/partyplanner/internal/models"
	"github.com/patric-chuzhbe/partyplanner/internal/ratelimit"
	"github.com/patric-chuzhbe/partyplanner/internal/router"
	"github.com/patric-chuzhbe/partyplanner/internal/service"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the party planner service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
	grpcServer  *grpc.Server
	grpcLis     net.Listener
}

// InitOption configures New.
type InitOption func(*initOptions)

type initOptions struct {
	configOptions []config.InitOption
}

// WithConfigOptions passes options through to config.New.
func WithConfigOptions(opts ...config.InitOption) InitOption {
	return func(options *initOptions) {
		options.configOptions = append(options.configOptions, opts...)
	}
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up authentication, metrics and rate limiting
// - setting up the router and middleware
func New(optionsProto ...InitOption) (*App, error) {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var err error
	app := &App{}

	app.cfg, err = config.New(options.configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if app.cfg.JWTSecret == config.DefaultJWTSecret {
		logger.Log.Warnln("JWT_SECRET is not set, tokens are signed with the default secret")
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `getStorageByType()` calling: %w", err)
	}

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}

	partyService := service.New(app.db)
	authService := auth.New(
		app.db,
		app.cfg.JWTSecret,
		app.cfg.TokenTTL,
		app.cfg.PasswordHashCost,
	)
	appMetrics := metrics.New()

	app.httpHandler = router.New(
		partyService,
		authService,
		router.WithBasePath(app.cfg.BasePath),
		router.WithCORS(app.cfg.CORSAllowedOrigin),
		router.WithMetrics(appMetrics, checker.RequireTrustedSubnet),
		router.WithAuthRateLimit(ratelimit.New(app.cfg.AuthRateLimit, app.cfg.AuthRateBurst).Handler),
	)

	if app.cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcLis, err = grpcserver.NewGRPCServer(
			app.cfg.GRPCAddr,
			grpcserver.NewPartyHandler(
				partyService,
				authService,
				grpcserver.WithClaimRecorder(appMetrics),
			),
			authService,
		)
		if err != nil {
			return nil, errors.Join(
				fmt.Errorf("in internal/app/app.go/New(): error while `grpcserver.NewGRPCServer()` calling: %w", err),
				app.db.Close(),
			)
		}
	}

	return app, nil
}

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and closes the storage upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.serve(ctx)
}

func (a *App) serve(ctx context.Context) error {
	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr, "BasePath", a.cfg.BasePath)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.grpcServer != nil {
		logger.Log.Infow("gRPC server running", "GRPCAddr", a.grpcLis.Addr().String())
		go func() {
			serverErrCh <- a.grpcServer.Serve(a.grpcLis)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing the storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.stopGRPC()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		a.stopGRPC()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		return errors.Join(fmt.Errorf("server error: %w", err), a.db.Close())
	}
}

func (a *App) stopGRPC() {
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.SQLitePath != "" {
		return models.StorageTypeSQLite
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DBDriver,
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeSQLite:
		return sqlitedb.New(context.Background(), cfg.SQLitePath)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
