package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iedon/peerapi/agentapi"
	"github.com/iedon/peerapi/cache"
	"github.com/iedon/peerapi/config"
	"github.com/iedon/peerapi/db"
	"github.com/iedon/peerapi/httpserver"
	"github.com/iedon/peerapi/logger"
	"github.com/iedon/peerapi/peering"
	"github.com/iedon/peerapi/version"
)

// App represents the main application
type App struct {
	cfg *config.Config
	log *logger.Logger

	// External dependencies
	database    *db.Database
	cache       *cache.Cache
	agentClient *agentapi.Client

	// Core service
	svc *peering.Service

	// HTTP server
	httpServer *httpserver.Server

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new application instance
func New(configFile string) (*App, error) {
	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Create logger
	loggerCfg := &logger.Config{
		File:           cfg.Logger.File,
		MaxSize:        cfg.Logger.MaxSize,
		MaxBackups:     cfg.Logger.MaxBackups,
		MaxAge:         cfg.Logger.MaxAge,
		Compress:       cfg.Logger.Compress,
		ConsoleLogging: cfg.Logger.ConsoleLogging,
		Level:          logger.ParseLevel(cfg.Logger.Level),
	}
	log, err := logger.New(loggerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	log.Info("%s v%s starting...", version.SERVER_NAME, version.SERVER_VERSION)
	log.Info("Configuration loaded from: %s", configFile)

	// Connect to the database and converge the schema
	database, err := db.Open(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info("Database connected and schema migrated")

	// Connect to redis
	snapshotCache := cache.New(&cfg.Redis, log)

	// Create the outbound agent client
	agentClient := agentapi.NewClient(&cfg.Fetch, log)

	// Create the orchestration service
	svc := peering.NewService(database, snapshotCache, agentClient, log)

	// Create HTTP handlers and server
	handlers := httpserver.NewHandlers(cfg, log, svc)
	httpServer := httpserver.NewServer(cfg, log, handlers)

	// Create context for lifecycle management
	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		cfg:         cfg,
		log:         log,
		database:    database,
		cache:       snapshotCache,
		agentClient: agentClient,
		svc:         svc,
		httpServer:  httpServer,
		ctx:         ctx,
		cancel:      cancel,
	}

	return app, nil
}

// Run starts the application
func (a *App) Run() error {
	a.log.Info("Starting application components...")

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.log.Info("All components started successfully")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.log.Info("Received signal: %v", sig)
	case <-a.ctx.Done():
		a.log.Info("Context cancelled")
	}

	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	a.log.Info("Initiating graceful shutdown...")
	shutdownStart := time.Now()

	a.cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop HTTP server
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Warn("HTTP server shutdown error: %v", err)
	}

	// Close external connections
	if err := a.cache.Close(); err != nil {
		a.log.Warn("Redis close error: %v", err)
	}
	if err := a.database.Close(); err != nil {
		a.log.Warn("Database close error: %v", err)
	}

	a.log.Info("Shutdown complete in %v", time.Since(shutdownStart))
	a.log.Close()
	return nil
}
