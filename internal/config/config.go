// Package config loads BarqAdl configuration from config.toml, an optional
// environment overlay, and BARQADL_ environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Reflex-Gravity/BarqAdl/pkg/database"
	"github.com/Reflex-Gravity/BarqAdl/pkg/model"
	"github.com/Reflex-Gravity/BarqAdl/pkg/persistence"
	"github.com/Reflex-Gravity/BarqAdl/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvBarqAdlEnv             = "BARQADL_ENV"
	EnvBarqAdlConfig          = "BARQADL_CONFIG"
	EnvBarqAdlShutdownTimeout = "BARQADL_SHUTDOWN_TIMEOUT"
	EnvBarqAdlVersion         = "BARQADL_VERSION"
	EnvBarqAdlLogLevel        = "BARQADL_LOG_LEVEL"
)

var modelEnv = &model.Env{
	Provider:          "BARQADL_MODEL_PROVIDER",
	RequestsPerMinute: "BARQADL_MODEL_REQUESTS_PER_MINUTE",
	CallTimeout:       "BARQADL_MODEL_CALL_TIMEOUT",
	TierPrefix:        "BARQADL_MODEL_TIER_",
	GenAIAPIKey:       "BARQADL_GENAI_API_KEY",
	GenAIBackend:      "BARQADL_GENAI_BACKEND",
	GenAIProject:      "BARQADL_GENAI_PROJECT",
	GenAILocation:     "BARQADL_GENAI_LOCATION",
}

var storeEnv = &persistence.Env{
	Backend: "BARQADL_STORE_BACKEND",
	DataDir: "BARQADL_STORE_DATA_DIR",
}

var databaseEnv = &database.Env{
	Driver:          "BARQADL_DB_DRIVER",
	Path:            "BARQADL_DB_PATH",
	Host:            "BARQADL_DB_HOST",
	Port:            "BARQADL_DB_PORT",
	Name:            "BARQADL_DB_NAME",
	User:            "BARQADL_DB_USER",
	Password:        "BARQADL_DB_PASSWORD",
	SSLMode:         "BARQADL_DB_SSL_MODE",
	MaxOpenConns:    "BARQADL_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "BARQADL_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "BARQADL_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "BARQADL_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "BARQADL_STORAGE_CONTAINER_NAME",
	ConnectionString: "BARQADL_STORAGE_CONNECTION_STRING",
	AccountURL:       "BARQADL_STORAGE_ACCOUNT_URL",
	Prefix:           "BARQADL_STORAGE_PREFIX",
}

// Config is the root configuration for the BarqAdl service and CLI.
type Config struct {
	Server          ServerConfig       `toml:"server"`
	API             APIConfig          `toml:"api"`
	Model           model.Config       `toml:"model"`
	Store           persistence.Config `toml:"store"`
	Database        database.Config    `toml:"database"`
	Storage         storage.Config     `toml:"storage"`
	Pipeline        PipelineConfig     `toml:"pipeline"`
	ShutdownTimeout string             `toml:"shutdown_timeout"`
	Version         string             `toml:"version"`
	LogLevel        string             `toml:"log_level"`
}

// Env returns the BARQADL_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvBarqAdlEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (BARQADL_CONFIG or config.toml, if present),
// applies any environment overlay, and finalizes all values. Without a config
// file, defaults and environment variables provide everything.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvBarqAdlConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.LogLevel != "" {
		c.LogLevel = overlay.LogLevel
	}
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Model.Merge(&overlay.Model)
	c.Store.Merge(&overlay.Store)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Pipeline.Merge(&overlay.Pipeline)
}

// Finalize applies defaults, environment overrides and validation to every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Model.Finalize(modelEnv); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if c.Model.Provider == model.ProviderAgents {
		if err := FinalizeAgent(&c.Model.Agent); err != nil {
			return fmt.Errorf("model.agent: %w", err)
		}
	}
	if err := c.Store.Finalize(storeEnv); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Pipeline.Finalize(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvBarqAdlShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvBarqAdlVersion); v != "" {
		c.Version = v
	}
	if v := os.Getenv(EnvBarqAdlLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvBarqAdlEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
