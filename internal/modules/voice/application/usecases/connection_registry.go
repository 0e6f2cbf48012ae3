package usecases

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/sglre6355/sgrvoice/internal/metrics"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/domain"
	"golang.org/x/sync/singleflight"
)

// DefaultIdleTimeout is how long a connection may go without activity before
// the registry disconnects it.
const DefaultIdleTimeout = 5 * time.Minute

// idleDisconnectTimeout bounds the handle disconnect performed on idle expiry.
const idleDisconnectTimeout = 10 * time.Second

// DisconnectCallback is invoked once when a guild's connection is torn down.
type DisconnectCallback func(reason domain.DisconnectReason)

// Connection is a live guild voice connection tracked by the registry.
type Connection struct {
	SessionID   uuid.UUID
	GuildID     snowflake.ID
	ConnectedAt time.Time

	handle ports.ConnectionHandle
	idle   *domain.IdleTimer
}

// Handle returns the underlying voice connection handle.
func (c *Connection) Handle() ports.ConnectionHandle {
	return c.handle
}

// Touch reports activity on the connection, resetting its idle timeout.
func (c *Connection) Touch() {
	c.idle.Touch()
}

// IdleFor returns how long the connection has gone without activity.
func (c *Connection) IdleFor() time.Duration {
	return time.Since(c.idle.LastActivity())
}

// RegistryOption configures a ConnectionRegistry.
type RegistryOption func(*ConnectionRegistry)

// WithIdleTimeout overrides DefaultIdleTimeout for every guild.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *ConnectionRegistry) {
		r.idleTimeout = d
	}
}

// WithLogger sets the logger used by the registry.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *ConnectionRegistry) {
		r.logger = logger
	}
}

// WithMetrics records connection lifecycle metrics.
func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *ConnectionRegistry) {
		r.metrics = m
	}
}

// ConnectionRegistry owns the live voice connection of each guild and the
// callbacks waiting for that connection to go away.
// At most one connection exists per guild.
type ConnectionRegistry struct {
	mu           sync.Mutex
	connections  map[snowflake.ID]*Connection
	onDisconnect map[snowflake.ID][]DisconnectCallback

	// closing holds a channel per guild whose old handle is still
	// disconnecting. It is closed once the handle is released.
	closing map[snowflake.ID]chan struct{}

	// creating collapses concurrent joins for the same guild into one.
	creating singleflight.Group

	idleTimeout time.Duration
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewConnectionRegistry creates a new ConnectionRegistry.
func NewConnectionRegistry(opts ...RegistryOption) *ConnectionRegistry {
	r := &ConnectionRegistry{
		connections:  make(map[snowflake.ID]*Connection),
		onDisconnect: make(map[snowflake.ID][]DisconnectCallback),
		closing:      make(map[snowflake.ID]chan struct{}),
		idleTimeout:  DefaultIdleTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetConnection returns the live connection for the guild.
// Returns ErrNotConnected if there is none.
func (r *ConnectionRegistry) GetConnection(guildID snowflake.ID) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[guildID]
	if !ok {
		return nil, ErrNotConnected
	}
	return conn, nil
}

// GetOrCreateConnection returns the guild's live connection, joining target
// if there is none. Concurrent callers for the same guild share a single join.
// Join errors are returned unchanged and leave the registry untouched.
func (r *ConnectionRegistry) GetOrCreateConnection(
	ctx context.Context,
	guildID snowflake.ID,
	target ports.JoinTarget,
) (*Connection, error) {
	if conn, err := r.GetConnection(guildID); err == nil {
		return conn, nil
	}

	v, err, _ := r.creating.Do(guildID.String(), func() (any, error) {
		if err := r.waitClosed(ctx, guildID); err != nil {
			return nil, err
		}
		// A join that finished between the lookup above and Do is already stored.
		if conn, err := r.GetConnection(guildID); err == nil {
			return conn, nil
		}
		return r.create(ctx, guildID, target)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Connection), nil
}

// waitClosed blocks until no old handle of the guild is still disconnecting.
func (r *ConnectionRegistry) waitClosed(ctx context.Context, guildID snowflake.ID) error {
	for {
		r.mu.Lock()
		done, ok := r.closing[guildID]
		r.mu.Unlock()
		if !ok {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *ConnectionRegistry) create(
	ctx context.Context,
	guildID snowflake.ID,
	target ports.JoinTarget,
) (*Connection, error) {
	start := time.Now()

	handle, err := target.Join(ctx)
	if err != nil {
		r.metrics.JoinFailed()
		r.logger.Warn("failed to join voice channel", "guild", guildID, "error", err)
		return nil, err
	}

	conn := &Connection{
		SessionID:   uuid.New(),
		GuildID:     guildID,
		ConnectedAt: time.Now(),
		handle:      handle,
	}

	r.mu.Lock()
	conn.idle = domain.NewIdleTimer(r.idleTimeout, func() {
		r.expire(conn)
	})
	r.connections[guildID] = conn
	r.mu.Unlock()

	if src, ok := handle.(ports.ActivitySource); ok {
		src.OnActivity(conn.Touch)
	}

	r.metrics.ConnectionCreated(time.Since(start))
	r.logger.Info("connected to voice",
		"guild", guildID,
		"session", conn.SessionID,
		"idle_timeout", r.idleTimeout,
	)

	return conn, nil
}

// Disconnect disconnects the guild's connection and notifies its subscribers
// in subscription order. Does nothing if the guild is not connected.
func (r *ConnectionRegistry) Disconnect(ctx context.Context, guildID snowflake.ID) {
	r.teardown(ctx, guildID, nil, domain.DisconnectRequested)
}

// HandleBotLeftVoice tears down the guild's connection after the bot was
// removed from voice by Discord or another user.
func (r *ConnectionRegistry) HandleBotLeftVoice(ctx context.Context, guildID snowflake.ID) {
	r.teardown(ctx, guildID, nil, domain.DisconnectExternal)
}

// SubscribeToDisconnect registers callback to run on the guild's next
// disconnect. The guild does not need to be connected yet.
func (r *ConnectionRegistry) SubscribeToDisconnect(
	guildID snowflake.ID,
	callback DisconnectCallback,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onDisconnect[guildID] = append(r.onDisconnect[guildID], callback)
}

// Guilds returns a snapshot of the connected guild IDs.
func (r *ConnectionRegistry) Guilds() []snowflake.ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	guilds := make([]snowflake.ID, 0, len(r.connections))
	for guildID := range r.connections {
		guilds = append(guilds, guildID)
	}
	slices.Sort(guilds)
	return guilds
}

// Count returns the number of live connections.
func (r *ConnectionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.connections)
}

// Shutdown disconnects every guild.
func (r *ConnectionRegistry) Shutdown(ctx context.Context) {
	for _, guildID := range r.Guilds() {
		r.teardown(ctx, guildID, nil, domain.DisconnectShutdown)
	}
}

func (r *ConnectionRegistry) expire(conn *Connection) {
	ctx, cancel := context.WithTimeout(context.Background(), idleDisconnectTimeout)
	defer cancel()

	r.teardown(ctx, conn.GuildID, conn, domain.DisconnectIdle)
}

// teardown removes the guild's entry and then releases it. When expected is
// set, only that connection is torn down so a stale idle timer cannot evict
// a newer connection. New joins for the guild wait until the old handle has
// disconnected.
func (r *ConnectionRegistry) teardown(
	ctx context.Context,
	guildID snowflake.ID,
	expected *Connection,
	reason domain.DisconnectReason,
) {
	r.mu.Lock()
	conn, ok := r.connections[guildID]
	if !ok || (expected != nil && conn != expected) {
		r.mu.Unlock()
		return
	}
	callbacks := r.onDisconnect[guildID]
	delete(r.connections, guildID)
	delete(r.onDisconnect, guildID)
	closed := make(chan struct{})
	r.closing[guildID] = closed
	r.mu.Unlock()

	conn.idle.Stop()

	if err := conn.handle.Disconnect(ctx); err != nil {
		r.logger.Warn("failed to disconnect voice connection",
			"guild", guildID,
			"session", conn.SessionID,
			"error", err,
		)
	}

	// Released before callbacks so they may reconnect the guild.
	r.mu.Lock()
	delete(r.closing, guildID)
	r.mu.Unlock()
	close(closed)

	for _, callback := range callbacks {
		callback(reason)
	}

	r.metrics.Disconnected(reason.String())
	r.logger.Info("disconnected from voice",
		"guild", guildID,
		"session", conn.SessionID,
		"reason", reason.String(),
		"subscribers", len(callbacks),
	)
}
