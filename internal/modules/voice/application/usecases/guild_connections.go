package usecases

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
)

// GuildScopedConnections is a view of a ConnectionRegistry bound to one guild.
// Views for the same guild are interchangeable.
type GuildScopedConnections struct {
	registry *ConnectionRegistry
	guildID  snowflake.ID
}

// NewGuildScopedConnections creates a view of registry for guildID.
func NewGuildScopedConnections(
	registry *ConnectionRegistry,
	guildID snowflake.ID,
) *GuildScopedConnections {
	return &GuildScopedConnections{
		registry: registry,
		guildID:  guildID,
	}
}

// GuildID returns the guild this view is bound to.
func (g *GuildScopedConnections) GuildID() snowflake.ID {
	return g.guildID
}

// GetConnection returns the guild's live connection, or ErrNotConnected.
func (g *GuildScopedConnections) GetConnection() (*Connection, error) {
	return g.registry.GetConnection(g.guildID)
}

// GetOrCreateConnection returns the guild's live connection, joining target if needed.
func (g *GuildScopedConnections) GetOrCreateConnection(
	ctx context.Context,
	target ports.JoinTarget,
) (*Connection, error) {
	return g.registry.GetOrCreateConnection(ctx, g.guildID, target)
}

// Disconnect disconnects the guild, if connected.
func (g *GuildScopedConnections) Disconnect(ctx context.Context) {
	g.registry.Disconnect(ctx, g.guildID)
}

// SubscribeToDisconnect registers callback for the guild's next disconnect.
func (g *GuildScopedConnections) SubscribeToDisconnect(callback DisconnectCallback) {
	g.registry.SubscribeToDisconnect(g.guildID, callback)
}
