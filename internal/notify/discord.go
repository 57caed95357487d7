package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo calls we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notices to a fixed channel over the Discord REST API.
type Discord struct {
	session discordSession
	channel string
}

// NewDiscord builds a Discord adapter, or nil when no token is configured.
func NewDiscord(token, channel string) (*Discord, error) {
	if token == "" || channel == "" {
		return nil, nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: session: %w", err)
	}
	return &Discord{session: s, channel: channel}, nil
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(_ context.Context, n Notice) error {
	content := fmt.Sprintf("**%s**\n%s", n.Subject, n.Body)
	if _, err := d.session.ChannelMessageSend(d.channel, content); err != nil {
		return fmt.Errorf("discord: send to %s: %w", d.channel, err)
	}
	return nil
}
