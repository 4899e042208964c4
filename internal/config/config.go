// Package config loads service configuration from a YAML file with
// environment variable overrides for deploy-time secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Server struct {
		HTTPAddr      string `yaml:"http_addr"`
		GRPCAddr      string `yaml:"grpc_addr"`
		RateBurst     int    `yaml:"rate_burst"`
		RatePerSecond int    `yaml:"rate_per_second"`
		MaxBodyBytes  int64  `yaml:"max_body_bytes"`
	} `yaml:"server"`
	Auth struct {
		AccessSecret     string `yaml:"access_secret"`
		RefreshSecret    string `yaml:"refresh_secret"`
		Issuer           string `yaml:"issuer"`
		Audience         string `yaml:"audience"`
		Airline          string `yaml:"airline"`
		AccessTTLMinutes int    `yaml:"access_ttl_minutes"`
		RefreshTTLHours  int    `yaml:"refresh_ttl_hours"`
		MaxFailures      int    `yaml:"max_failures"`
		LockMinutes      int    `yaml:"lock_minutes"`
	} `yaml:"auth"`
	Crypto struct {
		// MasterKey is a base64-encoded 32-byte key. When set, data keys
		// never leave the process.
		MasterKey string `yaml:"master_key"`
	} `yaml:"crypto"`
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.HTTPAddr = ":8080"
	cfg.Server.RateBurst = 20
	cfg.Server.RatePerSecond = 10
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Auth.AccessTTLMinutes = 15
	cfg.Auth.RefreshTTLHours = 168
	cfg.Auth.MaxFailures = 5
	cfg.Auth.LockMinutes = 30
	return cfg
}

// Load reads configuration from the specified YAML file on top of the
// defaults, then applies environment overrides.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		decoder := yaml.NewDecoder(file)
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv lets deployments inject secrets without writing them to disk.
func (c *Config) applyEnv() {
	overrideString(&c.Server.HTTPAddr, "CREWLINK_HTTP_ADDR")
	overrideString(&c.Server.GRPCAddr, "CREWLINK_GRPC_ADDR")
	overrideString(&c.Auth.AccessSecret, "CREWLINK_ACCESS_SECRET")
	overrideString(&c.Auth.RefreshSecret, "CREWLINK_REFRESH_SECRET")
	overrideString(&c.Auth.Airline, "CREWLINK_AIRLINE")
	overrideString(&c.Crypto.MasterKey, "CREWLINK_MASTER_KEY")
	overrideString(&c.Database.DSN, "CREWLINK_PG_DSN")
	overrideInt(&c.Auth.AccessTTLMinutes, "CREWLINK_ACCESS_TTL_MINUTES")
	overrideInt(&c.Auth.RefreshTTLHours, "CREWLINK_REFRESH_TTL_HOURS")
}

// AccessTTL returns the configured access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.Auth.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the configured refresh token lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTTLHours) * time.Hour
}

// LockDuration returns how long an account stays locked after repeated
// failed logins.
func (c *Config) LockDuration() time.Duration {
	return time.Duration(c.Auth.LockMinutes) * time.Minute
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
