// ABOUTME: Configuration loader for the gymtrack client
// ABOUTME: Reads an optional YAML file overlaid by environment variables and .env

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const appName = "gymtrack"

type Config struct {
	// API
	APIURL         string        `yaml:"api_url" env:"GYMTRACK_API_URL" env-default:"http://localhost:3333"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"GYMTRACK_REQUEST_TIMEOUT" env-default:"30s"`

	// Outbound throttling, requests per second (0 disables)
	RateLimit float64 `yaml:"rate_limit" env:"GYMTRACK_RATE_LIMIT" env-default:"0"`
	RateBurst int     `yaml:"rate_burst" env:"GYMTRACK_RATE_BURST" env-default:"5"`

	// Exercise catalog reads are cached for this long
	CatalogCacheTTL time.Duration `yaml:"catalog_cache_ttl" env:"GYMTRACK_CATALOG_CACHE_TTL" env-default:"5m"`

	// Where the session and debug log live
	ConfigDir string `yaml:"config_dir" env:"GYMTRACK_CONFIG_DIR"`
}

// DefaultConfigDir returns the default config directory following XDG spec
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// Load builds the configuration. Sources, highest priority first:
//  1. environment (including a .env file in the working directory);
//  2. the YAML file at path, else $GYMTRACK_CONFIG, else <config dir>/config.yaml if present;
//  3. defaults.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("GYMTRACK_CONFIG")
	}
	explicit := path != ""
	if !explicit {
		dir := os.Getenv("GYMTRACK_CONFIG_DIR")
		if dir == "" {
			dir = DefaultConfigDir()
		}
		if dir != "" {
			path = filepath.Join(dir, "config.yaml")
		}
	}

	var cfg Config
	if path != "" {
		_, statErr := os.Stat(path)
		switch {
		case statErr == nil:
			// ReadConfig overlays env on top of the file.
			if err := cleanenv.ReadConfig(path, &cfg); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		case explicit:
			return nil, fmt.Errorf("config file %q: %w", path, statErr)
		default:
			path = ""
		}
	}
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.ConfigDir == "" {
		cfg.ConfigDir = DefaultConfigDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate_limit is set, got %d", c.RateBurst)
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("catalog_cache_ttl must not be negative, got %s", c.CatalogCacheTTL)
	}
	return nil
}
