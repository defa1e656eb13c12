package config

import (
	"fmt"
	"os"

	"github.com/Reflex-Gravity/BarqAdl/pkg/formatting"
	"github.com/Reflex-Gravity/BarqAdl/pkg/middleware"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "BARQADL_CORS_ENABLED",
	Origins:          "BARQADL_CORS_ORIGINS",
	AllowedMethods:   "BARQADL_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "BARQADL_CORS_ALLOWED_HEADERS",
	AllowCredentials: "BARQADL_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "BARQADL_CORS_MAX_AGE",
}

const defaultMaxRequestSize = 1 << 20

// APIConfig holds API routing, request limits and CORS settings.
type APIConfig struct {
	BasePath       string                `toml:"base_path"`
	MaxRequestSize string                `toml:"max_request_size"`
	CORS           middleware.CORSConfig `toml:"cors"`
}

// MaxRequestSizeBytes returns the JSON body limit, falling back to 1MB when unparseable.
func (c *APIConfig) MaxRequestSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxRequestSize)
	if err != nil || size <= 0 {
		return defaultMaxRequestSize
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS config.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if _, err := formatting.ParseBytes(c.MaxRequestSize); err != nil {
		return fmt.Errorf("invalid max_request_size: %w", err)
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxRequestSize != "" {
		c.MaxRequestSize = overlay.MaxRequestSize
	}
	c.CORS.Merge(&overlay.CORS)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxRequestSize == "" {
		c.MaxRequestSize = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("BARQADL_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("BARQADL_API_MAX_REQUEST_SIZE"); v != "" {
		c.MaxRequestSize = v
	}
}
