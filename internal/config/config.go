// internal/config/config.go
//
// Process configuration for the Waldo Hunt server.
// All values come from the environment (a .env file is loaded by main in
// development); parsing is handled by caarlos0/env struct tags.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the process reads at startup. It is built once
// in main and passed explicitly to the components that need it; nothing reads
// the environment after Load returns.
type Config struct {
	Port         string `env:"PORT" envDefault:"3000"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./data/app.db"`

	// JWTSecret signs session tokens. The default exists so the server can
	// boot in development; production deployments must override it.
	JWTSecret string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`

	// TokenTTL is the signed token lifetime. It must be at least SessionTTL
	// so a still-valid token never points at a session that was reclaimed
	// before the token expired.
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"6h"`

	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	CookieName   string `env:"COOKIE_NAME" envDefault:"waldo_token"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	Production   bool   `env:"PRODUCTION" envDefault:"false"`
}

// Load parses the environment into a Config and validates cross-field rules.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TokenTTL < cfg.SessionTTL {
		return Config{}, fmt.Errorf("TOKEN_TTL (%s) must be >= SESSION_TTL (%s)", cfg.TokenTTL, cfg.SessionTTL)
	}
	return cfg, nil
}
