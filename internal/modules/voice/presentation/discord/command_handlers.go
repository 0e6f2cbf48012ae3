package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/bot"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/usecases"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorInfo    = 0x3498DB
	colorError   = 0xE74C3C
)

// CommandHandlers holds the voice command handlers.
type CommandHandlers struct {
	voiceChannel *usecases.VoiceChannelService
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(voiceChannel *usecases.VoiceChannelService) *CommandHandlers {
	return &CommandHandlers{
		voiceChannel: voiceChannel,
	}
}

// HandleJoin handles the /join command.
func (h *CommandHandlers) HandleJoin(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if i.Member == nil || i.Member.User == nil {
		return respondError(r, "This command can only be used in a server")
	}
	userID, err := snowflake.Parse(i.Member.User.ID)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	notificationChannelID, err := snowflake.Parse(i.ChannelID)
	if err != nil {
		return respondError(r, "Invalid notification channel")
	}

	var voiceChannelID snowflake.ID
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			voiceChannelID, err = snowflake.Parse(opt.ChannelValue(s).ID)
			if err != nil {
				return respondError(r, "Invalid voice channel")
			}
		}
	}

	output, err := h.voiceChannel.Join(ctx, usecases.JoinInput{
		GuildID:               guildID,
		UserID:                userID,
		NotificationChannelID: notificationChannelID,
		VoiceChannelID:        voiceChannelID,
	})
	if err != nil {
		return respondError(r, err.Error())
	}

	if output.AlreadyConnected {
		return respondEmbed(r, "Already connected to a voice channel.", colorInfo)
	}
	return respondEmbed(r, fmt.Sprintf("Connected to <#%d>.", output.VoiceChannelID), colorSuccess)
}

// HandleLeave handles the /leave command.
func (h *CommandHandlers) HandleLeave(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	ctx := context.Background()

	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	if err := h.voiceChannel.Leave(ctx, usecases.LeaveInput{GuildID: guildID}); err != nil {
		if errors.Is(err, usecases.ErrNotConnected) {
			return respondError(r, "Not connected to a voice channel.")
		}
		return respondError(r, err.Error())
	}

	return respondEmbed(r, "Left the voice channel.", colorSuccess)
}

// HandleVoiceStatus handles the /voice-status command.
func (h *CommandHandlers) HandleVoiceStatus(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	guildID, err := snowflake.Parse(i.GuildID)
	if err != nil {
		return respondError(r, "Invalid guild")
	}

	status, err := h.voiceChannel.Status(usecases.StatusInput{GuildID: guildID})
	if err != nil {
		if errors.Is(err, usecases.ErrNotConnected) {
			return respondEmbed(r, "Not connected to a voice channel.", colorInfo)
		}
		return respondError(r, err.Error())
	}

	description := fmt.Sprintf(
		"Connected <t:%d:R>.\nIdle for %s, leaving after %s of inactivity.",
		status.ConnectedAt.Unix(),
		status.IdleFor.Truncate(time.Second),
		status.IdleTimeout,
	)
	return respondEmbed(r, description, colorInfo)
}

func respondEmbed(r bot.Responder, description string, color int) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Description: description,
					Color:       color,
				},
			},
		},
	})
}

func respondError(r bot.Responder, message string) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Error",
					Description: message,
					Color:       colorError,
				},
			},
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}
