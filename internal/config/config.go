package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the gateway service configuration.
type Config struct {
	DatabaseURL string
	Port        string
	JWTSecret   string
	TokenTTL    time.Duration
	DevMode     bool
}

// Load reads gateway configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     "8080",
		TokenTTL: 12 * time.Hour,
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}

	cfg.DevMode = os.Getenv("DEV_MODE") == "true"

	return cfg, nil
}

// Terminal holds the operator terminal configuration. Everything has a
// working default so the terminal starts with no environment at all (the
// gateway client degrades to mock responses when unreachable).
type Terminal struct {
	GatewayURL   string
	CameraDevice string
	SessionPath  string
}

// LoadTerminal reads terminal configuration from environment variables.
func LoadTerminal() *Terminal {
	cfg := &Terminal{
		GatewayURL: "http://localhost:8080",
	}
	if u := os.Getenv("GATEWAY_URL"); u != "" {
		cfg.GatewayURL = u
	}
	if dev := os.Getenv("CAMERA_DEVICE"); dev != "" {
		cfg.CameraDevice = dev
	}
	if p := os.Getenv("SESSION_PATH"); p != "" {
		cfg.SessionPath = p
	}
	return cfg
}
