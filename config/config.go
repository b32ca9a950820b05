package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ConfigService exposes the runtime configuration the console needs.
// Handlers depend on this interface so tests can substitute a mock.
type ConfigService interface {
	APIBaseURL() string
	ServerPort() string
	AllowedOrigins() []string
}

// EnvConfig reads configuration from the environment, optionally seeded
// from a .env file.
type EnvConfig struct {
	apiBaseURL string
	serverPort string
	origins    []string
}

// Load reads .env (if present) and the environment. Missing optional
// values fall back to development defaults.
func Load() *EnvConfig {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg := &EnvConfig{
		apiBaseURL: getenv("API_BASE_URL", "http://localhost:8000"),
		serverPort: getenv("CONSOLE_PORT", "5173"),
	}
	for _, origin := range strings.Split(getenv("ALLOWED_ORIGINS", "http://localhost:5173"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.origins = append(cfg.origins, origin)
		}
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (c *EnvConfig) APIBaseURL() string       { return c.apiBaseURL }
func (c *EnvConfig) ServerPort() string       { return c.serverPort }
func (c *EnvConfig) AllowedOrigins() []string { return c.origins }
