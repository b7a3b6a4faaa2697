package setup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robalyx/levels/internal/database"
	"github.com/robalyx/levels/internal/database/migrations"
	"github.com/robalyx/levels/internal/leveling"
	"github.com/robalyx/levels/internal/redis"
	"github.com/robalyx/levels/internal/setup/config"
	"github.com/robalyx/levels/internal/setup/telemetry"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool
	RedisManager *redis.Manager     // Redis connection manager
	LogManager   *telemetry.Manager // Log management system
	Engine       *leveling.Engine   // Leveling engine over the database store
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, serviceType telemetry.ServiceType, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(serviceType, logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logManager.StartTracing(config.RepositoryVersion, logger)

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	standingsClient, err := redisManager.GetClient(redis.StandingsDBIndex)
	if err != nil {
		return nil, err
	}

	standingsCache := redis.NewStandingsCache(
		standingsClient, time.Duration(cfg.Leveling.Cache.StandingsTTL)*time.Second, logger,
	)

	// Initialize database with migration check
	opts := database.Options{EnableTracing: cfg.Common.Debug.EnableTracing}

	db, err := checkAndRunMigrations(ctx, &cfg.Common.PostgreSQL, dbLogger, opts)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	engine := leveling.NewEngine(db.Store(), &cfg.Leveling, logger,
		leveling.WithStandingsCache(standingsCache),
		leveling.WithDirectory(leveling.NewStaticDirectory(cfg.Leveling.Directory)),
	)

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger.Named("database"),
		DB:           db,
		RedisManager: redisManager,
		LogManager:   logManager,
		Engine:       engine,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	s.Engine.Close()

	// Flush pending spans before the loggers go away
	if err := s.LogManager.Stop(ctx); err != nil {
		s.Logger.Error("Failed to flush traces", zap.Error(err))
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()
}

// checkAndRunMigrations runs database migrations if needed.
func checkAndRunMigrations(
	ctx context.Context, cfg *config.PostgreSQL, dbLogger *zap.Logger, opts database.Options,
) (database.Client, error) {
	tempDB, err := database.NewConnection(ctx, cfg, dbLogger, opts)
	if err != nil {
		return nil, err
	}

	migrator := migrate.NewMigrator(tempDB.DB(), migrations.Migrations)

	// A fresh database has no migration tables to report status from
	if err := migrator.Init(ctx); err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	ms, err := migrator.MigrationsWithStatus(ctx)
	if err != nil {
		tempDB.Close()
		return nil, fmt.Errorf("failed to check migration status: %w", err)
	}

	unapplied := ms.Unapplied()
	if len(unapplied) == 0 {
		return tempDB, nil
	}

	log.Printf("%d database migrations are pending. Would you like to run them now? (y/N)", len(unapplied))

	var response string

	_, _ = fmt.Scanln(&response)

	if response != "y" && response != "Y" {
		tempDB.Close()
		return nil, ErrMigrationsPending
	}

	tempDB.Close()

	opts.AutoMigrate = true

	return database.NewConnection(ctx, cfg, dbLogger, opts)
}
