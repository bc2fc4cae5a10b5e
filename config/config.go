// Package config loads the agentstudio configuration from a YAML file, an
// optional .env file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentstudio/core"
	"github.com/hupe1980/agentstudio/logging"
	"github.com/hupe1980/agentstudio/store/postgres"
	"github.com/hupe1980/agentstudio/tool/mcpbridge"
)

// Model providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is the root configuration document.
type Config struct {
	HTTP       HTTPConfig               `yaml:"http"`
	Log        LogConfig                `yaml:"log"`
	Model      ModelConfig              `yaml:"model"`
	Store      StoreConfig              `yaml:"store"`
	Agent      AgentConfig              `yaml:"agent"`
	MCPServers []mcpbridge.ServerConfig `yaml:"mcp_servers"`
}

// HTTPConfig configures the REST server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ModelConfig selects the model backend.
type ModelConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// APIKey reads the key from the configured environment variable.
func (m ModelConfig) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver   string          `yaml:"driver"`
	Postgres postgres.Config `yaml:"postgres"`
}

// AgentConfig tunes the agent loop and tool execution.
type AgentConfig struct {
	MaxIterations    int           `yaml:"max_iterations"`
	MaxParallelTools int           `yaml:"max_parallel_tools"`
	ToolTimeout      time.Duration `yaml:"tool_timeout"`
	// Templates is a YAML file of agent templates keyed by template id.
	Templates string `yaml:"templates"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{Addr: ":8000", ShutdownTimeout: 10 * time.Second},
		Log:  LogConfig{Level: "info", Format: logging.FormatJSON},
		Model: ModelConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: core.DefaultTemperature,
			MaxTokens:   core.DefaultMaxTokens,
		},
		Store: StoreConfig{Driver: DriverMemory},
		Agent: AgentConfig{MaxIterations: 10, MaxParallelTools: 8, ToolTimeout: 30 * time.Second},
	}
}

// Load reads envFile (ignored when missing) and path (defaults only when
// empty), then applies environment overrides and validates the result.
// ${VAR} references inside the YAML file are expanded.
func Load(path, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from AGENTSTUDIO_* and the postgres variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("AGENTSTUDIO_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("AGENTSTUDIO_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("AGENTSTUDIO_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("AGENTSTUDIO_MODEL_PROVIDER"); v != "" {
		c.Model.Provider = v
	}
	if v := os.Getenv("AGENTSTUDIO_MODEL"); v != "" {
		c.Model.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" && c.Model.Provider == ProviderOpenAI {
		c.Model.BaseURL = v
	}
	if v := os.Getenv("AGENTSTUDIO_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("AGENTSTUDIO_MAX_ITERATIONS: %w", err)
		}
		c.Agent.MaxIterations = n
	}
	c.Store.Postgres.ApplyEnv()
	if os.Getenv("DATABASE_URL") != "" && c.Store.Driver == DriverMemory {
		c.Store.Driver = DriverPostgres
	}
	return nil
}

// Validate rejects unknown drivers and providers and non-positive limits.
func (c Config) Validate() error {
	var errs []error
	switch c.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown model provider %q", c.Model.Provider))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres driver requires store.postgres.url or DATABASE_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatText, logging.FormatTint:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	if c.Agent.MaxIterations <= 0 {
		errs = append(errs, errors.New("agent.max_iterations must be positive"))
	}
	if c.Agent.MaxParallelTools <= 0 {
		errs = append(errs, errors.New("agent.max_parallel_tools must be positive"))
	}
	if c.Agent.ToolTimeout <= 0 {
		errs = append(errs, errors.New("agent.tool_timeout must be positive"))
	}
	seen := make(map[string]struct{}, len(c.MCPServers))
	for _, s := range c.MCPServers {
		if s.Name == "" || s.Command == "" {
			errs = append(errs, errors.New("mcp server needs a name and a command"))
			continue
		}
		if _, dup := seen[s.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate mcp server %q", s.Name))
		}
		seen[s.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Logger builds the process logger described by the log section.
func (c Config) Logger() logging.Logger {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    strings.ToLower(c.Log.Format),
		Output:    os.Stderr,
		AddSource: c.Log.AddSource,
	})
}
