package persistence

import (
	"fmt"
	"os"
)

// Backends selectable by Config.Backend.
const (
	BackendFile     = "file"
	BackendDatabase = "database"
	BackendMemory   = "memory"
)

// Config selects and configures the store backend.
type Config struct {
	Backend string `toml:"backend"`
	DataDir string `toml:"data_dir"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Backend string
	DataDir string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.DataDir != "" {
		c.DataDir = overlay.DataDir
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Backend != "" {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
	}
	if env.DataDir != "" {
		if v := os.Getenv(env.DataDir); v != "" {
			c.DataDir = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir required for file backend")
		}
	case BackendDatabase, BackendMemory:
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	return nil
}
