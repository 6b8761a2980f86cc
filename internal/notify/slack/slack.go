// Package slack implements the notify.Notifier for Slack.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/kvistad/renderloop/internal/config"
	"github.com/kvistad/renderloop/internal/notify"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Notifier posts events to a Slack channel.
type Notifier struct {
	client  slackClient
	channel string
}

// New creates a Slack notifier from configuration.
func New(cfg config.SlackConfig) (*Notifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	return &Notifier{
		client:  slackapi.New(cfg.BotToken),
		channel: cfg.Channel,
	}, nil
}

// Notify posts one event as an attachment with a severity color bar.
func (n *Notifier) Notify(ctx context.Context, ev notify.Event) error {
	attachment := slackapi.Attachment{
		Color: notify.SeverityColor(ev.Severity),
		Title: ev.Title,
		Text:  ev.Body,
	}
	for _, f := range ev.Fields {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}
	if ev.PipelineID != "" {
		attachment.Footer = ev.PipelineID
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
