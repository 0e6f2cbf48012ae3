package infrastructure

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
)

// VoiceStateProvider reads member voice states from the session state cache.
type VoiceStateProvider struct {
	state *discordgo.State
}

// NewVoiceStateProvider creates a new VoiceStateProvider.
func NewVoiceStateProvider(state *discordgo.State) *VoiceStateProvider {
	return &VoiceStateProvider{
		state: state,
	}
}

// GetUserVoiceChannel returns the voice channel ID that the user is currently in.
// Returns 0 if the user is not in a voice channel.
func (v *VoiceStateProvider) GetUserVoiceChannel(
	guildID, userID snowflake.ID,
) (snowflake.ID, error) {
	vs, err := v.state.VoiceState(guildID.String(), userID.String())
	if err != nil {
		if errors.Is(err, discordgo.ErrStateNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to look up voice state: %w", err)
	}
	if vs.ChannelID == "" {
		return 0, nil
	}

	channelID, err := snowflake.Parse(vs.ChannelID)
	if err != nil {
		return 0, fmt.Errorf("failed to parse voice channel ID: %w", err)
	}
	return channelID, nil
}

// Ensure VoiceStateProvider implements ports.VoiceStateProvider.
var _ ports.VoiceStateProvider = (*VoiceStateProvider)(nil)
