package discord

import (
	"context"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/bot"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/usecases"
)

type stubHandle struct {
	disconnects atomic.Int32
}

func (s *stubHandle) Disconnect(_ context.Context) error {
	s.disconnects.Add(1)
	return nil
}

type stubTarget struct {
	handle  *stubHandle
	joinErr error
}

func (s *stubTarget) Join(_ context.Context) (ports.ConnectionHandle, error) {
	if s.joinErr != nil {
		return nil, s.joinErr
	}
	return s.handle, nil
}

type stubBackend struct {
	target   *stubTarget
	channels []snowflake.ID
}

func (s *stubBackend) Channel(_, channelID snowflake.ID) ports.JoinTarget {
	s.channels = append(s.channels, channelID)
	return s.target
}

type stubVoiceState struct {
	channelID snowflake.ID
}

func (s *stubVoiceState) GetUserVoiceChannel(_, _ snowflake.ID) (snowflake.ID, error) {
	return s.channelID, nil
}

type fixture struct {
	registry *usecases.ConnectionRegistry
	backend  *stubBackend
	service  *usecases.VoiceChannelService
}

func newFixture(userChannel snowflake.ID) *fixture {
	registry := usecases.NewConnectionRegistry()
	backend := &stubBackend{target: &stubTarget{handle: &stubHandle{}}}
	service := usecases.NewVoiceChannelService(
		registry,
		backend,
		&stubVoiceState{channelID: userChannel},
		nil,
	)
	return &fixture{registry: registry, backend: backend, service: service}
}

func commandInteraction(
	name string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "1",
			ChannelID: "3",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "2"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func embedOf(r *bot.MockResponder) *discordgo.MessageEmbed {
	if r.LastResponse == nil || r.LastResponse.Data == nil || len(r.LastResponse.Data.Embeds) == 0 {
		return nil
	}
	return r.LastResponse.Data.Embeds[0]
}
