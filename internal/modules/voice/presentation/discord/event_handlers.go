package discord

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/usecases"
)

// EventHandlers handles Discord gateway events for the voice module.
type EventHandlers struct {
	botID        snowflake.ID
	voiceChannel *usecases.VoiceChannelService
}

// NewEventHandlers creates a new EventHandlers.
func NewEventHandlers(
	botID snowflake.ID,
	voiceChannel *usecases.VoiceChannelService,
) *EventHandlers {
	return &EventHandlers{
		botID:        botID,
		voiceChannel: voiceChannel,
	}
}

// HandleVoiceStateUpdate handles VoiceStateUpdate events for the bot.
func (h *EventHandlers) HandleVoiceStateUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if event.VoiceState == nil || event.UserID != h.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// Parse the channel ID - nil means disconnected
	var newChannelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err != nil {
			slog.Error("failed to parse channel ID in voice state update", "error", err)
			return
		}
		newChannelID = &id
	}

	h.voiceChannel.HandleBotVoiceStateChange(context.Background(), usecases.BotVoiceStateChangeInput{
		GuildID:      guildID,
		NewChannelID: newChannelID,
	})
}
