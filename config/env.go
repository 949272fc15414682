package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer. ok is false when the variable is unset.
func EnvInt(key string) (int, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvBool parses key as a boolean.
func EnvBool(key string) (bool, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration parses key with time.ParseDuration.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return value, true, nil
}

// providerKeyEnv maps a provider to the variable its own SDKs read.
var providerKeyEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// ApplyEnv overlays AUDIT_* environment variables onto cfg. Every malformed
// variable is reported; valid ones are still applied.
func ApplyEnv(cfg *Config) error {
	var errs []error

	strVars := map[string]*string{
		"AUDIT_SEED_URL":     &cfg.SeedURL,
		"AUDIT_USER_AGENT":   &cfg.UserAgent,
		"AUDIT_LLM_PROVIDER": &cfg.LLMProvider,
		"AUDIT_LLM_MODEL":    &cfg.LLMModel,
		"AUDIT_LLM_API_URL":  &cfg.LLMAPIURL,
		"AUDIT_OUTPUT":       &cfg.OutputFile,
		"AUDIT_FORMAT":       &cfg.OutputFormat,
		"AUDIT_METRICS_ADDR": &cfg.MetricsAddr,
	}
	for key, dst := range strVars {
		if value, ok := EnvString(key); ok {
			*dst = value
		}
	}

	intVars := map[string]*int{
		"AUDIT_PAGES":              &cfg.MaxPages,
		"AUDIT_MAX_TEXT_CHARS":     &cfg.MaxTextChars,
		"AUDIT_MAX_LINKS":          &cfg.MaxLinks,
		"AUDIT_REVIEW_MAX_RETRIES": &cfg.ReviewMaxRetries,
		"AUDIT_REVIEW_CACHE_SIZE":  &cfg.ReviewCacheSize,
	}
	for key, dst := range intVars {
		value, ok, err := EnvInt(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			*dst = value
		}
	}

	durationVars := map[string]*time.Duration{
		"AUDIT_DELAY":          &cfg.Delay,
		"AUDIT_TIMEOUT":        &cfg.Timeout,
		"AUDIT_REVIEW_TIMEOUT": &cfg.ReviewTimeout,
	}
	for key, dst := range durationVars {
		value, ok, err := EnvDuration(key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := EnvBool("AUDIT_RESPECT_ROBOTS"); err != nil {
		errs = append(errs, err)
	} else if ok {
		cfg.RespectRobotsTxt = value
	}

	if value, ok := ResolveAPIKey(cfg.LLMProvider); ok {
		cfg.LLMAPIKey = value
	}

	return errors.Join(errs...)
}

// ResolveAPIKey returns AUDIT_API_KEY, falling back to the variable the
// provider's own tooling reads.
func ResolveAPIKey(provider string) (string, bool) {
	if value, ok := EnvString("AUDIT_API_KEY"); ok {
		return value, true
	}
	if key, known := providerKeyEnv[strings.ToLower(strings.TrimSpace(provider))]; known {
		return EnvString(key)
	}
	return "", false
}

// LoadDotEnv loads the given .env files into the process environment
// without overriding variables that are already set. Missing files are
// skipped; the files actually loaded are returned.
func LoadDotEnv(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return loaded, fmt.Errorf("load %s: %w", file, err)
		}
		loaded = append(loaded, file)
	}
	return loaded, nil
}
