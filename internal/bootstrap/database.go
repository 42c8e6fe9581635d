package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/goharvest/internal/config"
	"github.com/jonesrussell/goharvest/internal/database"
	"github.com/jonesrussell/goharvest/internal/events"
	"github.com/jonesrussell/goharvest/internal/logger"
)

// SetupDatabase creates a database connection pool.
func SetupDatabase(cfg *config.Config, log logger.Logger) (*sqlx.DB, error) {
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database connection: %w", err)
	}

	log.Info("Database connected",
		logger.String("host", cfg.Database.Host),
		logger.String("dbname", cfg.Database.DBName),
	)

	return db, nil
}

// SetupNotifier creates the lifecycle event sink. When Redis events are
// disabled the returned notifier discards everything and no connection is
// opened.
func SetupNotifier(cfg *config.Config, log logger.Logger) (events.Notifier, *redis.Client) {
	if !cfg.Redis.Enabled {
		log.Info("Event publishing disabled")
		return events.NopNotifier{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	log.Info("Event publishing enabled",
		logger.String("address", cfg.Redis.Address),
		logger.String("stream", events.StreamName),
	)

	return events.NewPublisher(client, log), client
}
