package model

import (
	"fmt"
	"os"
	"strconv"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Providers selectable by Config.Provider.
const (
	ProviderAgents = "agents"
	ProviderGenAI  = "genai"
)

// Config selects the provider and the model behind each tier.
type Config struct {
	Provider          string               `toml:"provider"`
	RequestsPerMinute int                  `toml:"requests_per_minute"`
	CallTimeout       string               `toml:"call_timeout"`
	Tiers             TierConfig           `toml:"tiers"`
	Agent             gaconfig.AgentConfig `toml:"agent"`
	GenAI             GenAIConfig          `toml:"genai"`
}

// TierConfig maps each tier to a model name.
type TierConfig struct {
	Orchestrator string `toml:"orchestrator"`
	Heavy        string `toml:"heavy"`
	Judge        string `toml:"judge"`
	Scraper      string `toml:"scraper"`
	Light        string `toml:"light"`
}

// GenAIConfig configures the Google GenAI provider.
type GenAIConfig struct {
	APIKey   string `toml:"api_key"`
	Backend  string `toml:"backend"`
	Project  string `toml:"project"`
	Location string `toml:"location"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Provider          string
	RequestsPerMinute string
	CallTimeout       string
	TierPrefix        string
	GenAIAPIKey       string
	GenAIBackend      string
	GenAIProject      string
	GenAILocation     string
}

// Model returns the model name configured for t.
func (c *TierConfig) Model(t Tier) (string, error) {
	switch t {
	case TierOrchestrator:
		return c.Orchestrator, nil
	case TierHeavy:
		return c.Heavy, nil
	case TierJudge:
		return c.Judge, nil
	case TierScraper:
		return c.Scraper, nil
	case TierLight:
		return c.Light, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, t)
}

// CallTimeoutDuration returns CallTimeout as a time.Duration; zero disables it.
func (c *Config) CallTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.CallTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
// The go-agents AgentConfig is finalized separately by the application config.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. Agent is merged by go-agents.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.RequestsPerMinute != 0 {
		c.RequestsPerMinute = overlay.RequestsPerMinute
	}
	if overlay.CallTimeout != "" {
		c.CallTimeout = overlay.CallTimeout
	}
	mergeString(&c.Tiers.Orchestrator, overlay.Tiers.Orchestrator)
	mergeString(&c.Tiers.Heavy, overlay.Tiers.Heavy)
	mergeString(&c.Tiers.Judge, overlay.Tiers.Judge)
	mergeString(&c.Tiers.Scraper, overlay.Tiers.Scraper)
	mergeString(&c.Tiers.Light, overlay.Tiers.Light)
	mergeString(&c.GenAI.APIKey, overlay.GenAI.APIKey)
	mergeString(&c.GenAI.Backend, overlay.GenAI.Backend)
	mergeString(&c.GenAI.Project, overlay.GenAI.Project)
	mergeString(&c.GenAI.Location, overlay.GenAI.Location)
	c.Agent.Merge(&overlay.Agent)
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAgents
	}
	if c.CallTimeout == "" {
		c.CallTimeout = "2m"
	}
	if c.Tiers.Orchestrator == "" {
		c.Tiers.Orchestrator = "gemini-2.5-flash"
	}
	if c.Tiers.Heavy == "" {
		c.Tiers.Heavy = "gemini-2.5-pro"
	}
	if c.Tiers.Judge == "" {
		c.Tiers.Judge = "gemini-2.5-flash"
	}
	if c.Tiers.Scraper == "" {
		c.Tiers.Scraper = "gemini-2.5-flash"
	}
	if c.Tiers.Light == "" {
		c.Tiers.Light = "gemini-2.5-flash-lite"
	}
	if c.GenAI.Backend == "" {
		c.GenAI.Backend = "gemini"
	}
}

func (c *Config) loadEnv(env *Env) {
	set := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	set(env.Provider, &c.Provider)
	set(env.CallTimeout, &c.CallTimeout)
	set(env.GenAIAPIKey, &c.GenAI.APIKey)
	set(env.GenAIBackend, &c.GenAI.Backend)
	set(env.GenAIProject, &c.GenAI.Project)
	set(env.GenAILocation, &c.GenAI.Location)

	if env.RequestsPerMinute != "" {
		if v := os.Getenv(env.RequestsPerMinute); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.RequestsPerMinute = n
			}
		}
	}

	if env.TierPrefix != "" {
		set(env.TierPrefix+"ORCHESTRATOR", &c.Tiers.Orchestrator)
		set(env.TierPrefix+"HEAVY", &c.Tiers.Heavy)
		set(env.TierPrefix+"JUDGE", &c.Tiers.Judge)
		set(env.TierPrefix+"SCRAPER", &c.Tiers.Scraper)
		set(env.TierPrefix+"LIGHT", &c.Tiers.Light)
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderAgents:
	case ProviderGenAI:
		switch c.GenAI.Backend {
		case "gemini":
			if c.GenAI.APIKey == "" {
				return fmt.Errorf("genai.api_key required for gemini backend")
			}
		case "vertex":
			if c.GenAI.Project == "" || c.GenAI.Location == "" {
				return fmt.Errorf("genai.project and genai.location required for vertex backend")
			}
		default:
			return fmt.Errorf("unsupported genai backend %q", c.GenAI.Backend)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	if _, err := time.ParseDuration(c.CallTimeout); err != nil {
		return fmt.Errorf("invalid call_timeout: %w", err)
	}
	return nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
