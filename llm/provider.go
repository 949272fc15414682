// Package llm talks to chat-completion engines over plain HTTP.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider turns a conversation into one complete text reply.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config selects and parameterises a provider. APIKey is held in memory only.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	APIURL     string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

const (
	defaultTimeout    = 60 * time.Second
	defaultRetryDelay = 500 * time.Millisecond
)

func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	case "gemini":
		return NewGeminiProvider(cfg), nil
	case "ollama":
		return NewOllamaProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func (c Config) retry() retrySettings {
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return retrySettings{maxRetries: retries, baseDelay: delay, maxDelay: delay * 16}
}

// splitSystem separates system messages from the rest of the conversation
// for engines that take the system prompt as a separate field.
func splitSystem(messages []Message) (string, []Message) {
	var system []string
	rest := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		rest = append(rest, msg)
	}
	return strings.Join(system, "\n\n"), rest
}
