package gateway

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
)

// SlackMirror posts simulation updates to a single Slack channel, using the
// agent's name as the message username so each character reads distinctly.
type SlackMirror struct {
	client  *slack.Client
	channel string
	logger  *zap.Logger
}

// NewSlackMirror creates a Slack mirror from gateway config.
func NewSlackMirror(cfg config.SlackGatewayConfig, logger *zap.Logger) *SlackMirror {
	return &SlackMirror{
		client:  slack.New(cfg.BotToken),
		channel: cfg.Channel,
		logger:  logger,
	}
}

func (m *SlackMirror) Platform() string { return "slack" }

// Connect verifies the bot token with an auth test.
func (m *SlackMirror) Connect(ctx context.Context) error {
	resp, err := m.client.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	m.logger.Info("slack mirror connected", zap.String("bot", resp.User))
	return nil
}

// Post sends one update to the configured channel.
func (m *SlackMirror) Post(ctx context.Context, u *Update) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(formatUpdate(u), false),
	}
	if u.Agent != "" {
		opts = append(opts, slack.MsgOptionUsername(u.Agent))
	}
	if _, _, err := m.client.PostMessageContext(ctx, m.channel, opts...); err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

func (m *SlackMirror) Close() error { return nil }

func formatUpdate(u *Update) string {
	stamp := u.SimTime.Format("Jan 2 15:04")
	switch u.Kind {
	case UpdateNarration:
		return fmt.Sprintf("*[%s]* :loudspeaker: %s", stamp, u.Text)
	case UpdateDailyDigest:
		return fmt.Sprintf("*[%s]* :sunrise: %s", stamp, u.Text)
	default:
		return fmt.Sprintf("*[%s]* %s", stamp, u.Text)
	}
}
