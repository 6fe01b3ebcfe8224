// Package config loads runtime settings for the promptconv CLI and server from
// the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting.
type Config struct {
	// Prompt sources; the first configured one wins (remote, git, then dir).
	PromptsDir   string        `env:"PROMPTS_DIR" envDefault:"prompts"`
	RemoteURL    string        `env:"PROMPTS_REMOTE_URL"`
	RemoteToken  string        `env:"PROMPTS_REMOTE_TOKEN"`
	GitURL       string        `env:"PROMPTS_GIT_URL"`
	GitBranch    string        `env:"PROMPTS_GIT_BRANCH" envDefault:"main"`
	GitDir       string        `env:"PROMPTS_GIT_DIR"`
	CacheTTL     time.Duration `env:"PROMPTS_CACHE_TTL" envDefault:"5m"`
	StaleOnError bool          `env:"PROMPTS_STALE_ON_ERROR" envDefault:"true"`
	DefaultTag   string        `env:"DEFAULT_TAG"`

	// Server.
	Address string `env:"ADDRESS" envDefault:":8080"`

	Log Log
}

// Log configures internal/logging.
type Log struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Format     string `env:"LOG_FORMAT" envDefault:"text"`
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE" envDefault:"100"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"7"`
	MaxAgeDays int    `env:"LOG_MAX_AGE" envDefault:"7"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// Source names the registry backend selected by the configuration.
type Source string

// Registry backends.
const (
	SourceDir    Source = "dir"
	SourceRemote Source = "remote"
	SourceGit    Source = "git"
)

// Source reports which registry the configuration selects.
func (c *Config) Source() Source {
	switch {
	case c.RemoteURL != "":
		return SourceRemote
	case c.GitURL != "":
		return SourceGit
	default:
		return SourceDir
	}
}

// Load reads files into the process environment (missing files are skipped; variables
// already set are not overridden) and parses Config from it.
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return Parse(env.Options{})
}

// Parse builds Config from the environment described by opts. Tests pass opts.Environment.
func Parse(opts env.Options) (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: PROMPTS_CACHE_TTL must not be negative, got %s", c.CacheTTL)
	}
	return nil
}
