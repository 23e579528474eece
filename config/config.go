package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all application configuration
type Config struct {
	Server   Server   `json:"server"`
	Database Database `json:"database"`
	Redis    Redis    `json:"redis"`
	Auth     Auth     `json:"auth"`
	Fetch    Fetch    `json:"fetch"`
	Logger   Logger   `json:"logger"`
}

// Server holds HTTP server configuration
type Server struct {
	Debug          bool     `json:"debug"`
	ListenerType   string   `json:"listenerType"`
	Listen         string   `json:"listen"`
	BodyLimit      int      `json:"bodyLimit"`
	ReadTimeout    int      `json:"readTimeout"`
	WriteTimeout   int      `json:"writeTimeout"`
	IdleTimeout    int      `json:"idleTimeout"`
	TrustedProxies []string `json:"trustedProxies"`
}

// Database holds the relational store configuration
type Database struct {
	DSN             string `json:"dsn"`
	MaxOpenConns    int    `json:"maxOpenConns"`
	MaxIdleConns    int    `json:"maxIdleConns"`
	ConnMaxLifetime int    `json:"connMaxLifetime"`
}

// Redis holds the ephemeral cache configuration
type Redis struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// Auth holds token verification configuration
type Auth struct {
	JWTSecret   string `json:"jwtSecret"`
	AgentAPIKey string `json:"agentApiKey"`
}

// Fetch holds outbound agent call configuration
type Fetch struct {
	RequestTimeout int `json:"requestTimeout"`
}

// Logger holds logger configuration
type Logger struct {
	File           string `json:"file"`
	MaxSize        int    `json:"maxSize"`
	MaxBackups     int    `json:"maxBackups"`
	MaxAge         int    `json:"maxAge"`
	Compress       bool   `json:"compress"`
	ConsoleLogging bool   `json:"consoleLogging"`
	Level          string `json:"level"`
}

// Load reads and parses configuration from a file
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	if err := json.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Validate configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}
