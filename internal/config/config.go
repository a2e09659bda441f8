// Package config loads the feed registry and keyword vocabulary from a YAML
// file supplied at process start. The lists are validated once at startup and
// injected into the pipeline; updating them requires a restart.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mouldwire/internal/domain/entity"
)

// FeedConfig is one registry entry.
type FeedConfig struct {
	URL      string `yaml:"url"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	// Format is a hint only (rss|atom); the parser detects the real dialect.
	Format string `yaml:"format"`
}

// Vocabulary holds the two-tier keyword lists. An item is relevant only when
// at least one subject and one context term co-occur in its text.
type Vocabulary struct {
	Subjects []string `yaml:"subjects"`
	Contexts []string `yaml:"contexts"`
}

// Config is the static configuration for one run.
type Config struct {
	Feeds      []FeedConfig `yaml:"feeds"`
	Vocabulary Vocabulary   `yaml:"vocabulary"`
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config file %s: %w", path, err)
	}

	cfg.normalize()
	return &cfg, nil
}

// Validate checks the startup invariants: at least one feed, well-formed feed
// URLs, and non-empty vocabularies on both tiers.
func (c *Config) Validate() error {
	if len(c.Feeds) == 0 {
		return fmt.Errorf("feeds: %w: at least one feed is required", entity.ErrInvalidInput)
	}
	for i, f := range c.Feeds {
		if _, err := entity.NewFeedSource(f.URL, f.Name, f.Category, f.Format); err != nil {
			return fmt.Errorf("feeds[%d]: %w", i, err)
		}
	}

	if len(c.Vocabulary.Subjects) == 0 {
		return fmt.Errorf("vocabulary.subjects: %w: must not be empty", entity.ErrInvalidInput)
	}
	if len(c.Vocabulary.Contexts) == 0 {
		return fmt.Errorf("vocabulary.contexts: %w: must not be empty", entity.ErrInvalidInput)
	}
	for i, s := range c.Vocabulary.Subjects {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("vocabulary.subjects[%d]: %w: blank term", i, entity.ErrInvalidInput)
		}
	}
	for i, s := range c.Vocabulary.Contexts {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("vocabulary.contexts[%d]: %w: blank term", i, entity.ErrInvalidInput)
		}
	}
	return nil
}

// normalize lowercases and trims vocabulary terms. Matching is
// case-insensitive, so terms are stored in canonical form.
func (c *Config) normalize() {
	for i, s := range c.Vocabulary.Subjects {
		c.Vocabulary.Subjects[i] = strings.ToLower(strings.TrimSpace(s))
	}
	for i, s := range c.Vocabulary.Contexts {
		c.Vocabulary.Contexts[i] = strings.ToLower(strings.TrimSpace(s))
	}
}

// Sources builds the FeedSource entities for the registry. Validation has
// already run, so construction errors are unexpected.
func (c *Config) Sources() ([]*entity.FeedSource, error) {
	sources := make([]*entity.FeedSource, 0, len(c.Feeds))
	for i, f := range c.Feeds {
		src, err := entity.NewFeedSource(f.URL, f.Name, f.Category, f.Format)
		if err != nil {
			return nil, fmt.Errorf("feeds[%d]: %w", i, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}
