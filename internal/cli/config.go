package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eleven-am/taskboard/internal/app"
	"github.com/eleven-am/taskboard/internal/events"
	"github.com/eleven-am/taskboard/internal/logger"
	"github.com/eleven-am/taskboard/internal/orm"
)

const (
	configEnv      = "TASKBOARD_CONFIG"
	databaseURLEnv = "TASKBOARD_DATABASE_URL"
)

var configLocations = []string{"taskboard.yaml", "taskboard.yml", ".taskboard.yaml", ".taskboard.yml"}

// Config represents the taskboard.yaml configuration structure
type Config struct {
	Version string `yaml:"version"`

	Database struct {
		Driver          string        `yaml:"driver"`
		URL             string        `yaml:"url"`
		MaxConnections  int           `yaml:"max_connections"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		AutoMigrate     bool          `yaml:"auto_migrate"`
	} `yaml:"database"`

	Board struct {
		// Actor is the member id recorded for CLI mutations.
		Actor            string        `yaml:"actor"`
		SkipDensityCheck bool          `yaml:"skip_density_check"`
		RetryAttempts    int           `yaml:"retry_attempts"`
		RetryBackoff     time.Duration `yaml:"retry_backoff"`
	} `yaml:"board"`

	Events struct {
		Workers        int           `yaml:"workers"`
		Buffer         int           `yaml:"buffer"`
		HandoffTimeout time.Duration `yaml:"handoff_timeout"`
		Log            bool          `yaml:"log"`

		Redis struct {
			URL    string        `yaml:"url"`
			Prefix string        `yaml:"prefix"`
			Keep   int64         `yaml:"keep"`
			TTL    time.Duration `yaml:"ttl"`
		} `yaml:"redis"`
	} `yaml:"events"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func DefaultConfig() *Config {
	cfg := &Config{Version: "1"}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 10 * time.Minute
	}
	if c.Board.Actor == "" {
		c.Board.Actor = "cli"
	}
	if c.Board.RetryAttempts == 0 {
		c.Board.RetryAttempts = orm.DefaultRetryPolicy().Attempts
	}
	if c.Board.RetryBackoff == 0 {
		c.Board.RetryBackoff = orm.DefaultRetryPolicy().Backoff
	}
	def := events.DefaultOptions()
	if c.Events.Workers == 0 {
		c.Events.Workers = def.Workers
	}
	if c.Events.Buffer == 0 {
		c.Events.Buffer = def.Buffer
	}
	if c.Events.HandoffTimeout == 0 {
		c.Events.HandoffTimeout = def.HandoffTimeout
	}
	if c.Events.Redis.Prefix == "" {
		c.Events.Redis.Prefix = "taskboard"
	}
	if c.Events.Redis.Keep == 0 {
		c.Events.Redis.Keep = 100
	}
	if c.Events.Redis.TTL == 0 {
		c.Events.Redis.TTL = 24 * time.Hour
	}
	if c.Logging.Level == "" {
		c.Logging.Level = string(logger.LevelWarn)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// LoadConfig reads the configuration at path, or at the first default
// location when path is empty. Without any file the defaults are returned.
// TASKBOARD_DATABASE_URL always wins over the file's database url.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if url := os.Getenv(databaseURLEnv); url != "" {
		cfg.Database.URL = url
	}
	cfg.applyDefaults()

	if _, err := orm.ParseDialect(cfg.Database.Driver); err != nil {
		return nil, err
	}
	return cfg, nil
}

func GetConfigPath() string {
	if path := os.Getenv(configEnv); path != "" {
		return path
	}
	for _, loc := range configLocations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = configLocations[0]
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// AppConfig translates the file configuration into runtime settings.
func (c *Config) AppConfig() (app.Config, error) {
	dialect, err := orm.ParseDialect(c.Database.Driver)
	if err != nil {
		return app.Config{}, err
	}
	return app.Config{
		Dialect:         dialect,
		DatabaseURL:     c.Database.URL,
		MaxOpenConns:    c.Database.MaxConnections,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
		AutoMigrate:     c.Database.AutoMigrate,
		VerifyDensity:   !c.Board.SkipDensityCheck,
		Retry:           orm.RetryPolicy{Attempts: c.Board.RetryAttempts, Backoff: c.Board.RetryBackoff},
		Events: events.Options{
			Workers:        c.Events.Workers,
			Buffer:         c.Events.Buffer,
			HandoffTimeout: c.Events.HandoffTimeout,
		},
		RedisURL:    c.Events.Redis.URL,
		RedisPrefix: c.Events.Redis.Prefix,
		RedisKeep:   c.Events.Redis.Keep,
		RedisTTL:    c.Events.Redis.TTL,
		LogEvents:   c.Events.Log,
	}, nil
}
