package usecases

import "errors"

// Domain errors for the voice module.
var (
	// ErrNotConnected is returned when an operation requires the bot to be in a voice channel.
	ErrNotConnected = errors.New("not connected to a voice channel")

	// ErrUserNotInVoice is returned when the user is not in a voice channel.
	ErrUserNotInVoice = errors.New("you must be in a voice channel")

	// ErrVoiceUnavailable is returned when no voice backend is configured.
	ErrVoiceUnavailable = errors.New("voice is not available")
)
