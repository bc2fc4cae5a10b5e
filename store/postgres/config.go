package postgres

import (
	"os"
	"strconv"
	"time"
)

// Config captures PostgreSQL connection tuning options.
type Config struct {
	URL               string        `yaml:"url"`
	MaxConns          int32         `yaml:"max_conns"`
	MinConns          int32         `yaml:"min_conns"`
	MaxConnIdleTime   time.Duration `yaml:"max_conn_idle"`
	MaxConnLifetime   time.Duration `yaml:"max_conn_lifetime"`
	HealthCheckPeriod time.Duration `yaml:"healthcheck_period"`
}

// FromEnv builds a Config by reading well-known environment variables.
func FromEnv() Config {
	var cfg Config
	cfg.ApplyEnv()
	return cfg
}

// ApplyEnv overrides fields with the environment variables that are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.URL = v
	}
	if v := parseEnvInt32("PG_MAX_CONNS"); v > 0 {
		c.MaxConns = v
	}
	if v := parseEnvInt32("PG_MIN_CONNS"); v > 0 {
		c.MinConns = v
	}
	if d := parseEnvDuration("PG_MAX_CONN_IDLE", time.Minute); d > 0 {
		c.MaxConnIdleTime = d
	}
	if d := parseEnvDuration("PG_MAX_CONN_LIFETIME", time.Hour); d > 0 {
		c.MaxConnLifetime = d
	}
	if d := parseEnvDuration("PG_HEALTHCHECK_PERIOD", 30*time.Second); d > 0 {
		c.HealthCheckPeriod = d
	}
}

func parseEnvInt32(key string) int32 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

// parseEnvDuration returns 0 when key is unset and defaultVal when it is malformed.
func parseEnvDuration(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return d
}
