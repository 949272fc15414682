package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds audit configuration.
type Config struct {
	SeedURL          string        `yaml:"seed_url"`
	MaxPages         int           `yaml:"max_pages"`
	MaxPagesLimit    int           `yaml:"max_pages_limit"`
	QueueFactor      int           `yaml:"queue_factor"`
	Delay            time.Duration `yaml:"delay"`
	RandomDelay      time.Duration `yaml:"random_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxBodyBytes     int           `yaml:"max_body_bytes"`
	UserAgent        string        `yaml:"user_agent"`
	RespectRobotsTxt bool          `yaml:"respect_robots"`

	MaxTextChars int `yaml:"max_text_chars"`
	MaxLinks     int `yaml:"max_links"`

	LLMProvider      string        `yaml:"llm_provider"`
	LLMModel         string        `yaml:"llm_model"`
	LLMAPIURL        string        `yaml:"llm_api_url"`
	LLMAPIKey        string        `yaml:"-"`
	ReviewTimeout    time.Duration `yaml:"review_timeout"`
	ReviewMaxRetries int           `yaml:"review_max_retries"`
	ReviewCacheSize  int           `yaml:"review_cache_size"`

	OutputFile   string `yaml:"output_file"`
	OutputFormat string `yaml:"output_format"` // csv, json, or dual
	Verbose      bool   `yaml:"verbose"`
	MetricsAddr  string `yaml:"metrics_addr"`
}

// DefaultConfig returns conservative defaults for a small audit.
func DefaultConfig() *Config {
	return &Config{
		SeedURL:          "",
		MaxPages:         3,
		MaxPagesLimit:    10,
		QueueFactor:      10,
		Delay:            time.Second,
		RandomDelay:      0,
		Timeout:          15 * time.Second,
		MaxBodyBytes:     5 * 1024 * 1024,
		UserAgent:        "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		MaxTextChars:     10000,
		MaxLinks:         50,
		LLMProvider:      "gemini",
		LLMModel:         "gemini-1.5-flash",
		ReviewTimeout:    60 * time.Second,
		ReviewMaxRetries: 2,
		ReviewCacheSize:  128,
		OutputFile:       "output/audit_report.csv",
		OutputFormat:     "csv",
		Verbose:          false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := ValidateSeedURL(c.SeedURL); err != nil {
		return err
	}

	if c.MaxPagesLimit <= 0 {
		return fmt.Errorf("max pages limit must be positive")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.MaxPages > c.MaxPagesLimit {
		return fmt.Errorf("max pages (%d) cannot exceed %d", c.MaxPages, c.MaxPagesLimit)
	}
	if c.QueueFactor <= 0 {
		return fmt.Errorf("queue factor must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxTextChars <= 0 {
		return fmt.Errorf("max text chars must be positive")
	}
	if c.MaxLinks < 0 {
		return fmt.Errorf("max links cannot be negative")
	}

	switch strings.ToLower(c.LLMProvider) {
	case "gemini", "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("llm provider must be gemini, openai, anthropic, or ollama")
	}
	if c.LLMModel == "" {
		return fmt.Errorf("llm model cannot be empty")
	}
	if c.LLMAPIKey == "" && !strings.EqualFold(c.LLMProvider, "ollama") {
		return fmt.Errorf("api key is required for provider %s", c.LLMProvider)
	}
	if c.ReviewTimeout <= 0 {
		return fmt.Errorf("review timeout must be positive")
	}
	if c.ReviewMaxRetries < 0 {
		return fmt.Errorf("review max retries cannot be negative")
	}
	if c.ReviewCacheSize < 0 {
		return fmt.Errorf("review cache size cannot be negative")
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}

	return nil
}

// ValidateSeedURL checks that raw is an absolute http(s) URL with a host.
func ValidateSeedURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("seed URL cannot be empty")
	}

	parsedURL, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid seed URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("seed URL scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("seed URL must include a host")
	}
	return nil
}

// String renders the config for debug logs with the credential redacted.
func (c *Config) String() string {
	key := ""
	if c.LLMAPIKey != "" {
		key = "[redacted]"
	}
	return fmt.Sprintf("seed=%s pages=%d delay=%s timeout=%s provider=%s model=%s key=%s text_cap=%d link_cap=%d format=%s output=%s",
		c.SeedURL, c.MaxPages, c.Delay, c.Timeout, c.LLMProvider, c.LLMModel, key, c.MaxTextChars, c.MaxLinks, c.OutputFormat, c.OutputFile)
}
