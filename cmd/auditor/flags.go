package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/aluiziolira/go-site-audit/config"
)

type cliOptions struct {
	configPath string
	envFiles   string
	apiKey     string
}

// bindFlags registers every flag on fs with cfg's current values as defaults.
func bindFlags(fs *flag.FlagSet, cfg *config.Config, opts *cliOptions) {
	fs.StringVar(&cfg.SeedURL, "url", cfg.SeedURL, "Seed URL to audit (absolute http or https)")
	fs.IntVar(&cfg.MaxPages, "pages", cfg.MaxPages, "Maximum pages to audit, seed included")
	fs.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Delay between consecutive page fetches")
	fs.DurationVar(&cfg.RandomDelay, "random-delay", cfg.RandomDelay, "Random jitter added before each fetch")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-page fetch timeout")
	fs.BoolVar(&cfg.RespectRobotsTxt, "respect-robots", cfg.RespectRobotsTxt, "Respect robots.txt directives")
	fs.StringVar(&cfg.UserAgent, "user-agent", cfg.UserAgent, "User-Agent header for page fetches")

	fs.IntVar(&cfg.MaxTextChars, "max-text", cfg.MaxTextChars, "Maximum characters of page text sent for review")
	fs.IntVar(&cfg.MaxLinks, "max-links", cfg.MaxLinks, "Maximum links per page sent for review")

	fs.StringVar(&cfg.LLMProvider, "provider", cfg.LLMProvider, "Review engine: gemini, openai, anthropic, or ollama")
	fs.StringVar(&cfg.LLMModel, "model", cfg.LLMModel, "Review engine model name")
	fs.StringVar(&cfg.LLMAPIURL, "api-url", cfg.LLMAPIURL, "Override the review engine base URL")
	fs.StringVar(&opts.apiKey, "api-key", "", "Review engine API key (prefer AUDIT_API_KEY)")
	fs.DurationVar(&cfg.ReviewTimeout, "review-timeout", cfg.ReviewTimeout, "Per-page review timeout")
	fs.IntVar(&cfg.ReviewMaxRetries, "review-retries", cfg.ReviewMaxRetries, "Retries for rate-limited or failed review calls")
	fs.IntVar(&cfg.ReviewCacheSize, "review-cache", cfg.ReviewCacheSize, "Cached review replies (0 disables)")

	fs.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "Report file path")
	fs.StringVar(&cfg.OutputFormat, "format", cfg.OutputFormat, "Report format: csv, json, or dual")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	fs.StringVar(&opts.configPath, "config", opts.configPath, "YAML config file")
	fs.StringVar(&opts.envFiles, "env-file", opts.envFiles, "Comma-separated .env files to load (empty disables)")
}

// loadConfig layers defaults, the YAML file, the environment and flags, in
// that order of precedence. .env files never override the real environment.
func loadConfig(args []string, output io.Writer) (*config.Config, []string, error) {
	opts := &cliOptions{envFiles: ".env"}

	// The -env-file flag has to be known before the environment is read.
	pre := flag.NewFlagSet("audit", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	bindFlags(pre, config.DefaultConfig(), opts)
	_ = pre.Parse(args)

	var loaded []string
	if files := splitList(opts.envFiles); len(files) > 0 {
		var err error
		if loaded, err = config.LoadDotEnv(files...); err != nil {
			return nil, loaded, err
		}
	}

	cfg := config.DefaultConfig()
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, loaded, fmt.Errorf("environment: %w", err)
	}

	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(output)
	bindFlags(fs, cfg, opts)
	if err := fs.Parse(args); err != nil {
		return nil, loaded, err
	}
	if opts.configPath == "" {
		return finish(cfg, opts), loaded, nil
	}

	layered := config.DefaultConfig()
	if err := config.LoadFile(opts.configPath, layered); err != nil {
		return nil, loaded, err
	}
	if err := config.ApplyEnv(layered); err != nil {
		return nil, loaded, fmt.Errorf("environment: %w", err)
	}
	replay := flag.NewFlagSet("replay", flag.ContinueOnError)
	replay.SetOutput(io.Discard)
	replayOpts := &cliOptions{}
	bindFlags(replay, layered, replayOpts)
	var replayErr error
	fs.Visit(func(f *flag.Flag) {
		if err := replay.Set(f.Name, f.Value.String()); err != nil && replayErr == nil {
			replayErr = fmt.Errorf("flag -%s: %w", f.Name, err)
		}
	})
	if replayErr != nil {
		return nil, loaded, replayErr
	}
	return finish(layered, replayOpts), loaded, nil
}

func finish(cfg *config.Config, opts *cliOptions) *config.Config {
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	// -provider may have changed which provider-native variable applies.
	if opts.apiKey != "" {
		cfg.LLMAPIKey = opts.apiKey
	} else if key, ok := config.ResolveAPIKey(cfg.LLMProvider); ok {
		cfg.LLMAPIKey = key
	}
	cfg.OutputFormat = strings.ToLower(strings.TrimSpace(cfg.OutputFormat))
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
