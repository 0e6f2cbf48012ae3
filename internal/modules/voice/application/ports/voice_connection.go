package ports

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
)

// ConnectionHandle is an established voice session owned by the registry.
type ConnectionHandle interface {
	// Disconnect leaves the voice channel and releases the session.
	Disconnect(ctx context.Context) error
}

// JoinTarget is a destination that can establish a new ConnectionHandle,
// typically a specific voice channel.
type JoinTarget interface {
	// Join connects to the target. It may block on the gateway.
	Join(ctx context.Context) (ConnectionHandle, error)
}

// ActivitySource is implemented by handles that can report activity on the
// connection (speaking, playback) to reset the idle timeout.
type ActivitySource interface {
	// OnActivity registers a function called whenever activity is observed.
	OnActivity(fn func())
}

// VoiceBackend creates join targets for voice channels.
type VoiceBackend interface {
	// Channel returns a JoinTarget for the given voice channel.
	Channel(guildID, channelID snowflake.ID) JoinTarget
}
