package config

import (
	"fmt"
)

// Validate validates the configuration
func Validate(cfg *Config) error {
	// Validate required fields
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}

	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret is required")
	}

	if cfg.Auth.AgentAPIKey == "" {
		return fmt.Errorf("auth.agentApiKey is required")
	}

	// Set defaults if not specified
	if cfg.Server.ListenerType == "" {
		cfg.Server.ListenerType = "tcp"
	}

	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":3000"
	}

	if cfg.Fetch.RequestTimeout <= 0 {
		cfg.Fetch.RequestTimeout = 10
	}

	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 600
	}

	return nil
}
