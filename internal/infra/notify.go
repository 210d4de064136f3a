package infra

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
)

// LogNotifier implements domain.Notifier by logging the alert.
// Always present so alerts are never silently dropped.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the alert at warn level.
func (n *LogNotifier) Notify(ctx context.Context, title, message string) error {
	n.logger.Warn("focus alert",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// DiscordNotifier implements domain.Notifier by posting to a Discord
// channel. Enabled when a bot token and channel ID are configured.
type DiscordNotifier struct {
	session   *discordgo.Session
	channelID string
}

// NewDiscordNotifier creates a Discord notifier and opens the session.
func NewDiscordNotifier(token, channelID string) (*DiscordNotifier, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	if err := session.Open(); err != nil {
		return nil, fmt.Errorf("failed to open discord session: %w", err)
	}
	return &DiscordNotifier{session: session, channelID: channelID}, nil
}

// Notify posts the alert as a channel message.
func (n *DiscordNotifier) Notify(ctx context.Context, title, message string) error {
	_, err := n.session.ChannelMessageSend(n.channelID, fmt.Sprintf("**%s** %s", title, message))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

// Close shuts down the Discord session.
func (n *DiscordNotifier) Close() error {
	return n.session.Close()
}

// MultiNotifier fans an alert out to several notifiers. Individual
// failures don't stop the others; the first error is returned.
type MultiNotifier []domain.Notifier

// Notify delivers the alert to every notifier.
func (m MultiNotifier) Notify(ctx context.Context, title, message string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Notify(ctx, title, message); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Ensure implementations satisfy domain.Notifier.
var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = (*DiscordNotifier)(nil)
	_ domain.Notifier = (MultiNotifier)(nil)
)
