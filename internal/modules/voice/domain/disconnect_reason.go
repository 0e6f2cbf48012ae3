package domain

// DisconnectReason describes why a guild's voice connection was torn down.
type DisconnectReason int

const (
	DisconnectRequested DisconnectReason = iota // Explicit disconnect, e.g. /leave
	DisconnectIdle                              // No activity within the idle timeout
	DisconnectExternal                          // Bot was removed from voice outside the registry
	DisconnectShutdown                          // Module is shutting down
)

// String returns a human-readable representation of the reason.
func (r DisconnectReason) String() string {
	switch r {
	case DisconnectIdle:
		return "idle"
	case DisconnectExternal:
		return "external"
	case DisconnectShutdown:
		return "shutdown"
	default:
		return "requested"
	}
}

// Description returns a user-facing sentence for the reason.
func (r DisconnectReason) Description() string {
	switch r {
	case DisconnectIdle:
		return "Left the voice channel after being inactive for a while."
	case DisconnectExternal:
		return "Disconnected from the voice channel."
	case DisconnectShutdown:
		return "Left the voice channel because the bot is shutting down."
	default:
		return "Left the voice channel."
	}
}
