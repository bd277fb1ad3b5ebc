// Package config assembles runtime configuration from the environment and an
// optional YAML override file. The resulting struct is built once in main
// and passed into component constructors; no component reads the environment
// itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultNewsURL   = "https://dz-priem.plovdiv.bg/news"
	defaultStatePath = "/data/seen_articles.json"
)

// Config carries everything a run needs.
type Config struct {
	ViberToken  string // required unless DryRun
	ViberChatID string // required unless DryRun
	NewsURL     string
	StatePath   string
	ArchivePath string // empty disables the delivered-article archive
	ConfigFile  string // optional YAML override file
	DryRun      bool
	LogLevel    string

	// Extraction overrides; empty values keep the built-in heuristics.
	Selectors      []string
	SkipPatterns   []string
	DomainFragment string
}

// FromEnv builds a Config from environment variables, applying defaults for
// the source URL and the ledger path.
func FromEnv() Config {
	return Config{
		ViberToken:  os.Getenv("VIBER_BOT_TOKEN"),
		ViberChatID: os.Getenv("VIBER_CHAT_ID"),
		NewsURL:     getEnv("NEWS_URL", defaultNewsURL),
		StatePath:   getEnv("STATE_FILE", defaultStatePath),
		ArchivePath: os.Getenv("ARCHIVE_DB"),
		ConfigFile:  os.Getenv("CONFIG_FILE"),
		DryRun:      strings.EqualFold(os.Getenv("DRY_RUN"), "true"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks that messaging credentials are present. Dry-run mode never
// contacts the provider, so it passes without them.
func (c Config) Validate() error {
	if c.DryRun {
		return nil
	}
	if c.ViberToken == "" || c.ViberChatID == "" {
		return errors.New("VIBER_BOT_TOKEN and VIBER_CHAT_ID are required (unless DRY_RUN=true)")
	}
	return nil
}

// fileOverrides is the shape of the optional YAML override file.
type fileOverrides struct {
	Scraper struct {
		Selectors      []string `yaml:"selectors"`
		SkipPatterns   []string `yaml:"skip_patterns"`
		DomainFragment string   `yaml:"domain_fragment"`
	} `yaml:"scraper"`
}

// ApplyFile merges extraction overrides from the YAML file at path. A
// missing file is not an error; a file that exists but cannot be parsed is.
func (c *Config) ApplyFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var overrides fileOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(overrides.Scraper.Selectors) > 0 {
		c.Selectors = overrides.Scraper.Selectors
	}
	if len(overrides.Scraper.SkipPatterns) > 0 {
		c.SkipPatterns = overrides.Scraper.SkipPatterns
	}
	if overrides.Scraper.DomainFragment != "" {
		c.DomainFragment = overrides.Scraper.DomainFragment
	}
	return nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
