package enrich

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls abstract enrichment behavior.
type Config struct {
	// Enabled toggles the whole feature. When false every item keeps its
	// original excerpt.
	Enabled bool

	// ThinThreshold is the excerpt length (in characters, after markup
	// stripping) below which an excerpt is considered thin enough to need
	// enrichment.
	ThinThreshold int

	// Timeout bounds a single page fetch.
	Timeout time.Duration

	// MaxBodySize is the maximum HTML page size read, in bytes.
	MaxBodySize int64

	// MaxRedirects bounds redirect chains. Each target is re-validated.
	MaxRedirects int

	// MaxAbstractChars truncates the extracted text so one huge article page
	// cannot bloat the summarization payload.
	MaxAbstractChars int

	// DenyPrivateIPs blocks links resolving to private addresses. Always on
	// in production; tests disable it to reach local servers.
	DenyPrivateIPs bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		ThinThreshold:    150,
		Timeout:          10 * time.Second,
		MaxBodySize:      10 * 1024 * 1024,
		MaxRedirects:     5,
		MaxAbstractChars: 2000,
		DenyPrivateIPs:   true,
	}
}

// Validate checks configuration boundaries.
func (c *Config) Validate() error {
	if c.ThinThreshold < 0 {
		return fmt.Errorf("thin threshold must be non-negative, got %d", c.ThinThreshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	minBody := int64(1024)
	maxBody := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBody || c.MaxBodySize > maxBody {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBody, maxBody, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	if c.MaxAbstractChars < 100 {
		return fmt.Errorf("max abstract chars must be at least 100, got %d", c.MaxAbstractChars)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from ENRICH_* environment variables,
// starting from defaults and validating the result.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("ENRICH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}

	if val := os.Getenv("ENRICH_THIN_THRESHOLD"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid ENRICH_THIN_THRESHOLD: %v", err)
		}
		cfg.ThinThreshold = parsed
	}

	if val := os.Getenv("ENRICH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid ENRICH_TIMEOUT: %v (expected format: '10s', '1m')", err)
		}
		cfg.Timeout = parsed
	}

	if val := os.Getenv("ENRICH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid ENRICH_MAX_BODY_SIZE: %v", err)
		}
		cfg.MaxBodySize = parsed
	}

	if val := os.Getenv("ENRICH_MAX_ABSTRACT_CHARS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid ENRICH_MAX_ABSTRACT_CHARS: %v", err)
		}
		cfg.MaxAbstractChars = parsed
	}

	if val := os.Getenv("ENRICH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
