package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
)

// VoiceJoiner opens gateway voice connections.
// *discordgo.Session satisfies it.
type VoiceJoiner interface {
	ChannelVoiceJoin(gID, cID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// DiscordVoice joins voice channels with discordgo's native voice client.
type DiscordVoice struct {
	joiner   VoiceJoiner
	selfDeaf bool
}

// NewDiscordVoice creates a new DiscordVoice.
func NewDiscordVoice(joiner VoiceJoiner, selfDeaf bool) *DiscordVoice {
	return &DiscordVoice{
		joiner:   joiner,
		selfDeaf: selfDeaf,
	}
}

// Channel returns a JoinTarget for the given voice channel.
func (d *DiscordVoice) Channel(guildID, channelID snowflake.ID) ports.JoinTarget {
	return &discordVoiceChannel{
		voice:     d,
		guildID:   guildID,
		channelID: channelID,
	}
}

type discordVoiceChannel struct {
	voice     *DiscordVoice
	guildID   snowflake.ID
	channelID snowflake.ID
}

type joinResult struct {
	conn *discordgo.VoiceConnection
	err  error
}

// Join connects to the voice channel. discordgo does not take a context, so
// a join that completes after ctx is done is disconnected in the background.
func (c *discordVoiceChannel) Join(ctx context.Context) (ports.ConnectionHandle, error) {
	result := make(chan joinResult, 1)
	go func() {
		conn, err := c.voice.joiner.ChannelVoiceJoin(
			c.guildID.String(),
			c.channelID.String(),
			false,
			c.voice.selfDeaf,
		)
		result <- joinResult{conn: conn, err: err}
	}()

	select {
	case res := <-result:
		if res.err != nil {
			return nil, fmt.Errorf("failed to join voice channel: %w", res.err)
		}
		return newDiscordVoiceHandle(res.conn), nil
	case <-ctx.Done():
		go func() {
			res := <-result
			if res.err == nil {
				if err := res.conn.Disconnect(); err != nil {
					slog.Warn("failed to disconnect abandoned voice connection",
						"guild", c.guildID,
						"error", err,
					)
				}
			}
		}()
		return nil, fmt.Errorf("context cancelled while joining voice channel: %w", ctx.Err())
	}
}

// discordVoiceHandle wraps a discordgo voice connection and reports speaking
// updates as activity.
type discordVoiceHandle struct {
	conn *discordgo.VoiceConnection

	mu       sync.Mutex
	activity func()
}

func newDiscordVoiceHandle(conn *discordgo.VoiceConnection) *discordVoiceHandle {
	h := &discordVoiceHandle{conn: conn}
	conn.AddHandler(h.onSpeakingUpdate)
	return h
}

// Disconnect leaves the voice channel.
func (h *discordVoiceHandle) Disconnect(_ context.Context) error {
	if err := h.conn.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect from voice: %w", err)
	}
	return nil
}

// OnActivity registers fn to be called on speaking updates.
func (h *discordVoiceHandle) OnActivity(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activity = fn
}

func (h *discordVoiceHandle) onSpeakingUpdate(
	_ *discordgo.VoiceConnection,
	vs *discordgo.VoiceSpeakingUpdate,
) {
	if !vs.Speaking {
		return
	}

	h.mu.Lock()
	fn := h.activity
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Ensure DiscordVoice and its handles implement the port interfaces.
var (
	_ ports.VoiceBackend     = (*DiscordVoice)(nil)
	_ ports.ConnectionHandle = (*discordVoiceHandle)(nil)
	_ ports.ActivitySource   = (*discordVoiceHandle)(nil)
)
