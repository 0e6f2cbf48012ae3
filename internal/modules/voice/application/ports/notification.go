package ports

import (
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/domain"
)

// DisconnectNotifier sends disconnect notifications to Discord text channels.
type DisconnectNotifier interface {
	// SendDisconnected posts a message explaining why the bot left voice.
	SendDisconnected(channelID snowflake.ID, reason domain.DisconnectReason) error
}
