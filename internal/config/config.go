// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/alexanderramin/hourglass/internal/domain"
)

// Prefix is prepended to every variable name.
const Prefix = "HOURGLASS_"

// Config holds all settings. Variable names are Prefix plus the env tag,
// e.g. HOURGLASS_SLACK_URL.
type Config struct {
	DBPath     string `env:"DB"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	JWTSecret  string `env:"JWT_SECRET"`
	Locale     string `env:"LOCALE" envDefault:"en"`

	// HostName and Protocol build issue permalinks in chat messages.
	HostName string `env:"HOST_NAME" envDefault:"localhost:3000"`
	Protocol string `env:"PROTOCOL" envDefault:"http"`

	Slack    SlackConfig    `envPrefix:"SLACK_"`
	Rounding RoundingConfig `envPrefix:"ROUND_"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
	ServiceName  string `env:"SERVICE_NAME" envDefault:"hourglass"`
}

// SlackConfig holds the incoming-webhook settings. An empty URL disables
// chat notifications.
type SlackConfig struct {
	URL      string        `env:"URL"`
	Username string        `env:"USERNAME" envDefault:"hourglass"`
	Channel  string        `env:"CHANNEL" envDefault:"#redmine"`
	IconURL  string        `env:"ICON_URL"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

type RoundingConfig struct {
	Minimum int `env:"MINIMUM" envDefault:"15"`
	Limit   int `env:"LIMIT" envDefault:"50"`
}

// Load reads an optional .env file in the working directory, then the
// environment. Variables already set win over the file.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are skipped.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".hourglass", "hourglass.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the parser cannot.
func (c *Config) Validate() error {
	var problems []string
	switch strings.ToLower(c.Protocol) {
	case "http", "https":
	default:
		problems = append(problems, fmt.Sprintf("protocol must be http or https, got %q", c.Protocol))
	}
	if c.Rounding.Minimum < 0 {
		problems = append(problems, "rounding minimum must not be negative")
	}
	if c.Rounding.Limit < 0 || c.Rounding.Limit > 100 {
		problems = append(problems, "rounding limit must be between 0 and 100")
	}
	if c.Slack.Timeout < 0 {
		problems = append(problems, "slack timeout must not be negative")
	}
	if strings.TrimSpace(c.Locale) == "" {
		problems = append(problems, "locale must not be empty")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DomainRounding converts the rounding settings.
func (c *Config) DomainRounding() domain.Rounding {
	return domain.Rounding{Minimum: c.Rounding.Minimum, Limit: c.Rounding.Limit}
}
