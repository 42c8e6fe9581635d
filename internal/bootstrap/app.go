// Package bootstrap handles application initialization and lifecycle
// management for the goharvest service.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/goharvest/internal/config"
	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/importer"
	"github.com/jonesrussell/goharvest/internal/logger"
	"github.com/jonesrussell/goharvest/internal/orchestrator"
	"github.com/jonesrussell/goharvest/internal/promoter"
	"github.com/jonesrussell/goharvest/internal/scrape"
)

const version = "dev"

// App holds the wired application graph. Every entry point (serve, CLI
// commands) builds one App and picks what it needs.
type App struct {
	Config *config.Config
	Log    logger.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Sources    *database.SourceRepository
	Executions *database.ExecutionRepository
	Documents  *database.DocumentRepository
	Changes    *database.ChangeRepository

	Orchestrator *orchestrator.Orchestrator
	Promoter     *promoter.Promoter
	Importer     *importer.Importer
}

// New wires the full application from the config at path.
func New(configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := SetupDatabase(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	notifier, redisClient := SetupNotifier(cfg, log)

	sources := database.NewSourceRepository(db)
	executions := database.NewExecutionRepository(db)
	documents := database.NewDocumentRepository(db)
	changes := database.NewChangeRepository(db)

	registry := scrape.NewRegistry(
		scrape.NewHTMLListHandler(log),
		scrape.NewCatalogHandler(),
	)

	orch := orchestrator.New(
		sources,
		executions,
		documents,
		registry,
		orchestrator.NewCancelRegistry(),
		notifier,
		log,
		orchestrator.Options{
			InterSourceDelay: cfg.Harvest.InterSourceDelay,
			SnapshotMaxBytes: cfg.Harvest.SnapshotMaxBytes,
		},
	)

	return &App{
		Config:       cfg,
		Log:          log,
		DB:           db,
		Redis:        redisClient,
		Sources:      sources,
		Executions:   executions,
		Documents:    documents,
		Changes:      changes,
		Orchestrator: orch,
		Promoter:     promoter.New(documents, changes, log),
		Importer:     importer.New(sources, log),
	}, nil
}

// Close releases the App's connections. Safe to call once at shutdown.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Log.Error("Failed to close redis client", logger.Error(err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Log.Error("Failed to close database", logger.Error(err))
		}
	}
	_ = a.Log.Sync()
}
