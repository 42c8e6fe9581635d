package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultServerPort       = 8060
	defaultServerTimeout    = 30
	defaultDatabasePort     = 5432
	defaultMaxOpenConns     = 25
	defaultMaxIdleConns     = 5
	defaultConnMaxLifetime  = 5
	defaultRedisAddress     = "localhost:6379"
	defaultInterSourceDelay = 2 * time.Second
	defaultSnapshotMaxBytes = 256 * 1024
	defaultCronSchedule     = "*/15 * * * *"
)

type Config struct {
	Debug    bool           `env:"APP_DEBUG" yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Harvest  HarvestConfig  `yaml:"harvest"`
}

type ServerConfig struct {
	Host         string        `env:"SERVER_HOST" yaml:"host"`
	Port         int           `env:"SERVER_PORT" yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `env:"CORS_ORIGINS" yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST"     yaml:"host"`
	Port            int           `env:"DB_PORT"     yaml:"port"`
	User            string        `env:"DB_USER"     yaml:"user"`
	Password        string        `env:"DB_PASSWORD" yaml:"password"`
	DBName          string        `env:"DB_NAME"     yaml:"dbname"`
	SSLMode         string        `env:"DB_SSLMODE"  yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection configuration for lifecycle event publishing.
type RedisConfig struct {
	Address  string `env:"REDIS_ADDRESS"        yaml:"address"`
	Password string `env:"REDIS_PASSWORD"       yaml:"password"`
	DB       int    `env:"REDIS_DB"             yaml:"db"`
	Enabled  bool   `env:"REDIS_EVENTS_ENABLED" yaml:"enabled"` // Feature flag for event publishing
}

// HarvestConfig holds settings for scraping executions and scheduling.
type HarvestConfig struct {
	// InterSourceDelay is the pause between sequential source runs in RunAllDue.
	InterSourceDelay time.Duration `env:"HARVEST_INTER_SOURCE_DELAY" yaml:"inter_source_delay"`
	// SnapshotMaxBytes caps the raw snapshot stored per harvested document.
	SnapshotMaxBytes int `env:"HARVEST_SNAPSHOT_MAX_BYTES" yaml:"snapshot_max_bytes"`
	// CronSchedule is the cron expression for scheduled RunAllDue invocations.
	CronSchedule string `env:"HARVEST_CRON_SCHEDULE" yaml:"cron_schedule"`
	// CronEnabled toggles the in-process scheduler in serve mode.
	CronEnabled bool `env:"HARVEST_CRON_ENABLED" yaml:"cron_enabled"`
}

func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port is required and must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.Port <= 0 {
		return errors.New("database.port is required and must be positive")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Harvest.SnapshotMaxBytes < 0 {
		return errors.New("harvest.snapshot_max_bytes must be non-negative")
	}
	return nil
}

func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid config: %w", validateErr)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "goharvest"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Harvest.InterSourceDelay == 0 {
		cfg.Harvest.InterSourceDelay = defaultInterSourceDelay
	}
	if cfg.Harvest.SnapshotMaxBytes == 0 {
		cfg.Harvest.SnapshotMaxBytes = defaultSnapshotMaxBytes
	}
	if cfg.Harvest.CronSchedule == "" {
		cfg.Harvest.CronSchedule = defaultCronSchedule
	}
}
