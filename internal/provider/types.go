package provider

import (
	"context"
	"time"

	"github.com/hollowbrook/reverie/internal/config"
)

// Provider is a synchronous chat completion backend. Cognition never streams;
// every prompt wants a whole reply it can parse.
type Provider interface {
	ID() string
	Name() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	HealthCheck(ctx context.Context) error
}

// ChatRequest represents a request to an LLM provider.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
}

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse represents a response from an LLM provider.
type ChatResponse struct {
	ID           string `json:"id"`
	Model        string `json:"model"`
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

// Usage tracks token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Settings holds the connection parameters for a provider instance.
type Settings struct {
	ID       string
	Name     string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// SettingsFromConfig converts a config entry into provider settings.
func SettingsFromConfig(cfg config.ProviderConfig) Settings {
	return Settings{
		ID:       cfg.ID,
		Name:     cfg.Name,
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
	}
}
