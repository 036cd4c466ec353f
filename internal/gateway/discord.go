package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
)

// DiscordMirror posts simulation updates to a single Discord channel.
type DiscordMirror struct {
	token     string
	channelID string
	session   *discordgo.Session
	logger    *zap.Logger
}

// NewDiscordMirror creates a Discord mirror from gateway config.
func NewDiscordMirror(cfg config.DiscordGatewayConfig, logger *zap.Logger) *DiscordMirror {
	return &DiscordMirror{
		token:     cfg.BotToken,
		channelID: cfg.ChannelID,
		logger:    logger,
	}
}

func (m *DiscordMirror) Platform() string { return "discord" }

// Connect opens the Discord gateway session. Only outbound posting is used,
// so no message intents are requested.
func (m *DiscordMirror) Connect(_ context.Context) error {
	session, err := discordgo.New("Bot " + m.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	if err := session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	m.session = session
	m.logger.Info("discord mirror connected",
		zap.String("user", session.State.User.Username))
	return nil
}

// Post sends one update to the configured channel.
func (m *DiscordMirror) Post(_ context.Context, u *Update) error {
	if m.session == nil {
		return fmt.Errorf("discord session not connected")
	}
	content := formatDiscordUpdate(u)
	if _, err := m.session.ChannelMessageSend(m.channelID, content); err != nil {
		return fmt.Errorf("discord post: %w", err)
	}
	return nil
}

// Close shuts down the Discord session.
func (m *DiscordMirror) Close() error {
	if m.session != nil {
		return m.session.Close()
	}
	return nil
}

func formatDiscordUpdate(u *Update) string {
	stamp := u.SimTime.Format("Jan 2 15:04")
	switch u.Kind {
	case UpdateNarration:
		return fmt.Sprintf("**[%s]** 📢 %s", stamp, u.Text)
	case UpdateDailyDigest:
		return fmt.Sprintf("**[%s]** 🌅 %s", stamp, u.Text)
	default:
		if u.Agent != "" {
			return fmt.Sprintf("**[%s] %s**: %s", stamp, u.Agent, u.Text)
		}
		return fmt.Sprintf("**[%s]** %s", stamp, u.Text)
	}
}
