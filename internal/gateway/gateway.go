package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UpdateKind categorizes mirrored simulation updates.
type UpdateKind string

const (
	UpdateNarration    UpdateKind = "narration"
	UpdateConversation UpdateKind = "conversation"
	UpdateDailyDigest  UpdateKind = "daily_digest"
)

// Update is one simulation happening pushed out to chat platforms.
type Update struct {
	Kind    UpdateKind `json:"kind"`
	Agent   string     `json:"agent,omitempty"`
	Text    string     `json:"text"`
	SimTime time.Time  `json:"sim_time"`
}

// Mirror posts simulation updates to one external platform.
type Mirror interface {
	Platform() string
	Connect(ctx context.Context) error
	Post(ctx context.Context, u *Update) error
	Close() error
}

// Broadcaster fans simulation updates out to every registered mirror. A
// failing mirror is logged and skipped; the simulation never blocks on an
// external platform.
type Broadcaster struct {
	mu      sync.RWMutex
	mirrors map[string]Mirror
	logger  *zap.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		mirrors: make(map[string]Mirror),
		logger:  logger,
	}
}

// Register adds a mirror under its platform name.
func (b *Broadcaster) Register(m Mirror) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mirrors[m.Platform()] = m
	b.logger.Info("registered gateway mirror", zap.String("platform", m.Platform()))
}

// ConnectAll starts every registered mirror.
func (b *Broadcaster) ConnectAll(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for platform, m := range b.mirrors {
		if err := m.Connect(ctx); err != nil {
			return fmt.Errorf("connect %s: %w", platform, err)
		}
		b.logger.Info("mirror connected", zap.String("platform", platform))
	}
	return nil
}

// Publish posts an update to every mirror, best effort.
func (b *Broadcaster) Publish(ctx context.Context, u *Update) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for platform, m := range b.mirrors {
		if err := m.Post(ctx, u); err != nil {
			b.logger.Warn("mirror post failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
}

// Platforms returns the registered platform names.
func (b *Broadcaster) Platforms() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.mirrors))
	for p := range b.mirrors {
		names = append(names, p)
	}
	return names
}

// Close shuts down all mirrors.
func (b *Broadcaster) Close() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for platform, m := range b.mirrors {
		if err := m.Close(); err != nil {
			b.logger.Warn("mirror close failed",
				zap.String("platform", platform), zap.Error(err))
		}
	}
	return nil
}
