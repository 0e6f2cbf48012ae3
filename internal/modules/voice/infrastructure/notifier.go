package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/domain"
)

// Embed colors.
const (
	colorYellow = 0xF1C40F
	colorGray   = 0x95A5A6
)

// MessageSender sends messages to Discord channels.
// *discordgo.Session satisfies it.
type MessageSender interface {
	ChannelMessageSendEmbed(
		channelID string,
		embed *discordgo.MessageEmbed,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)
}

// Notifier sends voice notifications to Discord text channels.
type Notifier struct {
	sender MessageSender
}

// NewNotifier creates a new Notifier.
func NewNotifier(sender MessageSender) *Notifier {
	return &Notifier{
		sender: sender,
	}
}

// SendDisconnected posts an embed explaining why the bot left voice.
func (n *Notifier) SendDisconnected(channelID snowflake.ID, reason domain.DisconnectReason) error {
	color := colorGray
	if reason == domain.DisconnectIdle {
		color = colorYellow
	}

	embed := &discordgo.MessageEmbed{
		Description: reason.Description(),
		Color:       color,
	}

	if _, err := n.sender.ChannelMessageSendEmbed(channelID.String(), embed); err != nil {
		return fmt.Errorf("failed to send disconnect notification: %w", err)
	}
	return nil
}

// Ensure Notifier implements ports.DisconnectNotifier.
var _ ports.DisconnectNotifier = (*Notifier)(nil)
