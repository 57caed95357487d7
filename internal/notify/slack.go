package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts notices to a fixed channel.
type Slack struct {
	client  slackClient
	channel string
}

// NewSlack builds a Slack adapter, or nil when no token is configured.
func NewSlack(botToken, channel string) *Slack {
	if botToken == "" || channel == "" {
		return nil
	}
	return &Slack{client: slackapi.New(botToken), channel: channel}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, n Notice) error {
	text := fmt.Sprintf("*%s*\n%s", n.Subject, n.Body)
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack: post to %s: %w", s.channel, err)
	}
	return nil
}
