// Package discord implements the notify.Notifier for Discord.
package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/kvistad/renderloop/internal/config"
	"github.com/kvistad/renderloop/internal/notify"
)

// session abstracts the discordgo methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts events to a Discord channel as embeds.
type Notifier struct {
	sess    session
	channel string
}

// New creates a Discord notifier from configuration. The REST API is enough
// for outbound messages; no gateway connection is opened.
func New(cfg config.DiscordConfig) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord: token is required")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("discord: channel is required")
	}
	sess, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Notifier{sess: sess, channel: cfg.Channel}, nil
}

// Notify posts one event as an embed with a severity color.
func (n *Notifier) Notify(ctx context.Context, ev notify.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		Color:       embedColor(ev.Severity),
	}
	for _, f := range ev.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	if ev.PipelineID != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: ev.PipelineID}
	}

	if _, err := n.sess.ChannelMessageSendEmbed(n.channel, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}

// embedColor converts the shared hex color hint to a Discord color int.
func embedColor(severity string) int {
	hex := strings.TrimPrefix(notify.SeverityColor(severity), "#")
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
