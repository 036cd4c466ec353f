package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
)

// Router holds the registered providers and routes chat requests to the
// default one, walking the fallback chain when it fails.
type Router struct {
	mu        sync.RWMutex
	providers map[string]Provider
	fallbacks []string
	defaults  string
	logger    *zap.Logger
}

// NewRouter creates an empty provider router.
func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		logger:    logger,
	}
}

// BuildRouter registers a provider per config entry. The first entry becomes
// the default, the rest form the fallback chain in config order.
func BuildRouter(entries []config.ProviderConfig, logger *zap.Logger) (*Router, error) {
	r := NewRouter(logger)
	for _, entry := range entries {
		settings := SettingsFromConfig(entry)
		switch entry.Type {
		case "openai":
			r.Register(NewOpenAIProvider(settings, logger))
		case "anthropic":
			r.Register(NewAnthropicProvider(settings, logger))
		default:
			return nil, fmt.Errorf("unknown provider type %q", entry.Type)
		}
	}
	return r, nil
}

// Register adds a provider. The first registered provider becomes the
// default; later ones join the fallback chain.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
	if r.defaults == "" {
		r.defaults = p.ID()
	} else {
		r.fallbacks = append(r.fallbacks, p.ID())
	}
	r.logger.Info("registered provider", zap.String("id", p.ID()), zap.String("name", p.Name()))
}

// SetDefault overrides the default provider.
func (r *Router) SetDefault(providerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = providerID
}

// DefaultID returns the current default provider ID.
func (r *Router) DefaultID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaults
}

// Route sends a chat request through the default provider, then through each
// fallback in turn until one succeeds.
func (r *Router) Route(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	primary, ok := r.providers[r.defaults]
	if !ok {
		return nil, fmt.Errorf("no provider registered")
	}

	resp, err := primary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}
	r.logger.Warn("primary provider failed, trying fallbacks",
		zap.String("provider", primary.ID()), zap.Error(err))

	for _, fbID := range r.fallbacks {
		fb, ok := r.providers[fbID]
		if !ok || fbID == r.defaults {
			continue
		}
		resp, err = fb.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		r.logger.Warn("fallback provider failed", zap.String("provider", fbID), zap.Error(err))
	}

	return nil, fmt.Errorf("all providers failed: %w", err)
}

// GetProvider returns a provider by ID.
func (r *Router) GetProvider(id string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	return p, ok
}

// ListProviders returns all registered providers.
func (r *Router) ListProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	return result
}
