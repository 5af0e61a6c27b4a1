package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// channelSender is the part of discordgo.Session the gateway uses.
type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type DiscordGateway struct {
	Session   channelSender
	ChannelID string
}

// NewDiscordGateway uses the REST API only; no websocket session is opened.
func NewDiscordGateway(token, channelID string) (*DiscordGateway, error) {
	if channelID == "" {
		return nil, fmt.Errorf("discord channel ID is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordGateway{Session: session, ChannelID: channelID}, nil
}

func (d *DiscordGateway) Name() string {
	return "discord"
}

func (d *DiscordGateway) Send(ctx context.Context, text string) error {
	_, err := d.Session.ChannelMessageSend(d.ChannelID, text, discordgo.WithContext(ctx))
	return err
}
