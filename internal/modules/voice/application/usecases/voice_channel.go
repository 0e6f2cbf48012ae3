package usecases

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/domain"
)

// JoinInput contains the input for the Join use case.
type JoinInput struct {
	GuildID               snowflake.ID
	UserID                snowflake.ID
	NotificationChannelID snowflake.ID
	VoiceChannelID        snowflake.ID // Optional: specific channel to join (0 means use user's channel)
}

// JoinOutput contains the result of the Join use case.
type JoinOutput struct {
	VoiceChannelID   snowflake.ID
	AlreadyConnected bool
}

// LeaveInput contains the input for the Leave use case.
type LeaveInput struct {
	GuildID snowflake.ID
}

// StatusInput contains the input for the Status use case.
type StatusInput struct {
	GuildID snowflake.ID
}

// StatusOutput describes the guild's live connection.
type StatusOutput struct {
	ConnectedAt time.Time
	IdleFor     time.Duration
	IdleTimeout time.Duration
}

// BotVoiceStateChangeInput contains the input for handling bot voice state changes.
type BotVoiceStateChangeInput struct {
	GuildID      snowflake.ID
	NewChannelID *snowflake.ID // nil means disconnected
}

// VoiceChannelService handles voice channel operations on top of the registry.
type VoiceChannelService struct {
	registry   *ConnectionRegistry
	backend    ports.VoiceBackend
	voiceState ports.VoiceStateProvider
	notifier   ports.DisconnectNotifier
}

// NewVoiceChannelService creates a new VoiceChannelService.
func NewVoiceChannelService(
	registry *ConnectionRegistry,
	backend ports.VoiceBackend,
	voiceState ports.VoiceStateProvider,
	notifier ports.DisconnectNotifier,
) *VoiceChannelService {
	return &VoiceChannelService{
		registry:   registry,
		backend:    backend,
		voiceState: voiceState,
		notifier:   notifier,
	}
}

// Join connects the bot to a voice channel unless the guild is already connected.
// Disconnect notices go to the NotificationChannelID of the call that created
// the connection. Concurrent callers that share that join, or that find the
// guild already connected, do not subscribe their own channel.
func (v *VoiceChannelService) Join(ctx context.Context, input JoinInput) (*JoinOutput, error) {
	guild := NewGuildScopedConnections(v.registry, input.GuildID)

	if conn, err := guild.GetConnection(); err == nil {
		conn.Touch()
		return &JoinOutput{AlreadyConnected: true}, nil
	}

	if v.backend == nil {
		return nil, ErrVoiceUnavailable
	}

	// Determine which channel to join
	voiceChannelID := input.VoiceChannelID
	if voiceChannelID == 0 {
		userChannel, err := v.voiceState.GetUserVoiceChannel(input.GuildID, input.UserID)
		if err != nil {
			return nil, err
		}
		if userChannel == 0 {
			return nil, ErrUserNotInVoice
		}
		voiceChannelID = userChannel
	}

	target := &notifyingTarget{
		JoinTarget: v.backend.Channel(input.GuildID, voiceChannelID),
		onJoined: func() {
			guild.SubscribeToDisconnect(v.notifyDisconnect(input.GuildID, input.NotificationChannelID))
		},
	}

	conn, err := guild.GetOrCreateConnection(ctx, target)
	if err != nil {
		return nil, err
	}
	conn.Touch()

	return &JoinOutput{VoiceChannelID: voiceChannelID}, nil
}

// Leave disconnects the bot from the guild's voice channel.
func (v *VoiceChannelService) Leave(ctx context.Context, input LeaveInput) error {
	guild := NewGuildScopedConnections(v.registry, input.GuildID)

	if _, err := guild.GetConnection(); err != nil {
		return err
	}

	guild.Disconnect(ctx)
	return nil
}

// Status reports on the guild's live connection.
func (v *VoiceChannelService) Status(input StatusInput) (*StatusOutput, error) {
	conn, err := v.registry.GetConnection(input.GuildID)
	if err != nil {
		return nil, err
	}

	return &StatusOutput{
		ConnectedAt: conn.ConnectedAt,
		IdleFor:     conn.IdleFor(),
		IdleTimeout: conn.idle.Timeout(),
	}, nil
}

// HandleBotVoiceStateChange handles external voice state changes (bot moved or disconnected).
func (v *VoiceChannelService) HandleBotVoiceStateChange(
	ctx context.Context,
	input BotVoiceStateChangeInput,
) {
	if input.NewChannelID != nil {
		// Moved to another channel; the connection stays live
		if conn, err := v.registry.GetConnection(input.GuildID); err == nil {
			conn.Touch()
		}
		return
	}

	v.registry.HandleBotLeftVoice(ctx, input.GuildID)
}

// notifyDisconnect returns a callback that tells the notification channel why
// the bot left, except when a user asked it to.
func (v *VoiceChannelService) notifyDisconnect(
	guildID, channelID snowflake.ID,
) DisconnectCallback {
	return func(reason domain.DisconnectReason) {
		if v.notifier == nil || channelID == 0 || reason == domain.DisconnectRequested {
			return
		}
		if err := v.notifier.SendDisconnected(channelID, reason); err != nil {
			slog.Error("failed to send disconnect notification",
				"guild", guildID,
				"channel", channelID,
				"error", err,
			)
		}
	}
}

// notifyingTarget calls onJoined after a successful join, which happens once
// per created connection.
type notifyingTarget struct {
	ports.JoinTarget
	onJoined func()
}

func (t *notifyingTarget) Join(ctx context.Context) (ports.ConnectionHandle, error) {
	handle, err := t.JoinTarget.Join(ctx)
	if err != nil {
		return nil, err
	}
	t.onJoined()
	return handle, nil
}
