package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
)

// voiceConnectionTimeout is the maximum time to wait for voice connection to be established.
const voiceConnectionTimeout = 10 * time.Second

// VoiceStateUpdater sends gateway voice state updates.
// *discordgo.Session satisfies it.
type VoiceStateUpdater interface {
	ChannelVoiceJoinManual(gID, cID string, mute, deaf bool) error
}

// pendingVoiceConnection tracks the state of a pending voice connection.
type pendingVoiceConnection struct {
	mu             sync.Mutex
	hasVoiceState  bool
	hasVoiceServer bool
	ready          chan struct{}
}

func newPendingVoiceConnection() *pendingVoiceConnection {
	return &pendingVoiceConnection{
		ready: make(chan struct{}),
	}
}

// onEvent marks an event as received and signals ready if both events are present.
func (p *pendingVoiceConnection) onEvent(isVoiceState bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if isVoiceState {
		p.hasVoiceState = true
	} else {
		p.hasVoiceServer = true
	}

	if p.hasVoiceState && p.hasVoiceServer {
		select {
		case <-p.ready:
			// Already closed
		default:
			close(p.ready)
		}
	}
}

// voiceEventBuffer holds VoiceStateUpdate and VoiceServerUpdate data until
// both have arrived, so Lavalink never receives a partial voice state.
type voiceEventBuffer struct {
	mu sync.Mutex

	hasVoiceState bool
	channelID     *snowflake.ID
	sessionID     string

	hasVoiceServer bool
	token          string
	endpoint       string
}

// setVoiceState stores voice state data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceState(channelID *snowflake.ID, sessionID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceState = true
	b.channelID = channelID
	b.sessionID = sessionID

	return b.hasVoiceState && b.hasVoiceServer
}

// setVoiceServer stores voice server data and returns true if both events are now ready.
func (b *voiceEventBuffer) setVoiceServer(token, endpoint string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.hasVoiceServer = true
	b.token = token
	b.endpoint = endpoint

	return b.hasVoiceState && b.hasVoiceServer
}

// drain returns the buffered data and resets the buffer.
func (b *voiceEventBuffer) drain() (channelID *snowflake.ID, sessionID, token, endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channelID, sessionID, token, endpoint = b.channelID, b.sessionID, b.token, b.endpoint

	b.hasVoiceState = false
	b.hasVoiceServer = false
	b.channelID = nil
	b.sessionID = ""
	b.token = ""
	b.endpoint = ""

	return
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
	SelfDeaf bool
}

// LavalinkVoice joins voice channels on behalf of a Lavalink node.
// Discord voice events must be forwarded to OnVoiceStateUpdate and
// OnVoiceServerUpdate.
type LavalinkVoice struct {
	link     disgolink.Client
	gateway  VoiceStateUpdater
	botID    snowflake.ID
	selfDeaf bool

	pendingMu sync.Mutex
	pending   map[snowflake.ID]*pendingVoiceConnection

	voiceBufferMu sync.Mutex
	voiceBuffers  map[snowflake.ID]*voiceEventBuffer

	activityMu sync.Mutex
	activity   map[snowflake.ID]activityListener
}

// NewLavalinkVoice creates a LavalinkVoice connected to the configured node.
func NewLavalinkVoice(
	gateway VoiceStateUpdater,
	botID snowflake.ID,
	config LavalinkConfig,
) (*LavalinkVoice, error) {
	voice := newLavalinkVoice(gateway, botID, config.SelfDeaf)

	link := disgolink.New(botID,
		disgolink.WithListenerFunc(voice.onTrackStart),
		disgolink.WithListenerFunc(voice.onTrackEnd),
	)
	voice.link = link

	node, err := link.AddNode(context.Background(), disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return voice, nil
}

func newLavalinkVoice(gateway VoiceStateUpdater, botID snowflake.ID, selfDeaf bool) *LavalinkVoice {
	return &LavalinkVoice{
		gateway:      gateway,
		botID:        botID,
		selfDeaf:     selfDeaf,
		pending:      make(map[snowflake.ID]*pendingVoiceConnection),
		voiceBuffers: make(map[snowflake.ID]*voiceEventBuffer),
		activity:     make(map[snowflake.ID]activityListener),
	}
}

// Close closes the Lavalink client.
func (v *LavalinkVoice) Close() {
	if v.link != nil {
		v.link.Close()
	}
}

// Channel returns a JoinTarget for the given voice channel.
func (v *LavalinkVoice) Channel(guildID, channelID snowflake.ID) ports.JoinTarget {
	return &lavalinkChannel{
		voice:     v,
		guildID:   guildID,
		channelID: channelID,
	}
}

type lavalinkChannel struct {
	voice     *LavalinkVoice
	guildID   snowflake.ID
	channelID snowflake.ID
}

// Join connects to the voice channel.
func (c *lavalinkChannel) Join(ctx context.Context) (ports.ConnectionHandle, error) {
	if err := c.voice.joinChannel(ctx, c.guildID, c.channelID); err != nil {
		return nil, err
	}
	return &lavalinkHandle{voice: c.voice, guildID: c.guildID}, nil
}

// joinChannel waits for both VoiceStateUpdate and VoiceServerUpdate events before returning.
func (v *LavalinkVoice) joinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	pending := newPendingVoiceConnection()

	v.pendingMu.Lock()
	v.pending[guildID] = pending
	v.pendingMu.Unlock()

	defer func() {
		v.pendingMu.Lock()
		delete(v.pending, guildID)
		v.pendingMu.Unlock()
	}()

	err := v.gateway.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, v.selfDeaf)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-pending.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectionTimeout):
		return fmt.Errorf("timeout waiting for voice connection")
	}
}

// leaveChannel destroys the guild's player and leaves voice for owner.
func (v *LavalinkVoice) leaveChannel(ctx context.Context, owner *lavalinkHandle) error {
	guildID := owner.guildID
	v.removeActivityListener(owner)

	if v.link != nil {
		if player := v.link.ExistingPlayer(guildID); player != nil {
			if err := player.Destroy(ctx); err != nil {
				slog.Warn("failed to destroy player", "guild", guildID, "error", err)
			}
		}
	}

	if err := v.gateway.ChannelVoiceJoinManual(guildID.String(), "", false, false); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// OnVoiceServerUpdate handles Discord voice server updates.
func (v *LavalinkVoice) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	buffer := v.voiceBuffer(guildID)
	if buffer.setVoiceServer(event.Token, event.Endpoint) {
		v.forwardBufferedVoiceEvents(guildID, buffer)
	}

	v.signalPending(guildID, false)
}

// OnVoiceStateUpdate handles Discord voice state updates for the bot.
func (v *LavalinkVoice) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	if event.UserID != v.botID.String() {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	// Empty channel means the bot left voice; no VoiceServerUpdate follows
	if event.ChannelID == "" {
		if v.link != nil {
			v.link.OnVoiceStateUpdate(context.Background(), guildID, nil, event.SessionID)
		}
		v.clearVoiceBuffer(guildID)
		return
	}

	channelID, err := snowflake.Parse(event.ChannelID)
	if err != nil {
		slog.Error("failed to parse channel ID in voice state update", "error", err)
		return
	}

	buffer := v.voiceBuffer(guildID)
	if buffer.setVoiceState(&channelID, event.SessionID) {
		v.forwardBufferedVoiceEvents(guildID, buffer)
	}

	v.signalPending(guildID, true)
}

func (v *LavalinkVoice) signalPending(guildID snowflake.ID, isVoiceState bool) {
	v.pendingMu.Lock()
	pending := v.pending[guildID]
	v.pendingMu.Unlock()

	if pending != nil {
		pending.onEvent(isVoiceState)
	}
}

// voiceBuffer returns the voice buffer for a guild, creating one if needed.
func (v *LavalinkVoice) voiceBuffer(guildID snowflake.ID) *voiceEventBuffer {
	v.voiceBufferMu.Lock()
	defer v.voiceBufferMu.Unlock()

	buffer, exists := v.voiceBuffers[guildID]
	if !exists {
		buffer = &voiceEventBuffer{}
		v.voiceBuffers[guildID] = buffer
	}
	return buffer
}

func (v *LavalinkVoice) clearVoiceBuffer(guildID snowflake.ID) {
	v.voiceBufferMu.Lock()
	defer v.voiceBufferMu.Unlock()
	delete(v.voiceBuffers, guildID)
}

func (v *LavalinkVoice) forwardBufferedVoiceEvents(guildID snowflake.ID, buffer *voiceEventBuffer) {
	channelID, sessionID, token, endpoint := buffer.drain()

	slog.Debug("forwarding buffered voice events to Lavalink",
		"guild", guildID,
		"channel", channelID,
		"hasSessionID", sessionID != "",
	)

	if v.link == nil {
		return
	}
	v.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	v.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}

// activityListener is a guild's activity callback and the handle it belongs to.
type activityListener struct {
	owner *lavalinkHandle
	fn    func()
}

func (v *LavalinkVoice) setActivityListener(owner *lavalinkHandle, fn func()) {
	v.activityMu.Lock()
	defer v.activityMu.Unlock()
	v.activity[owner.guildID] = activityListener{owner: owner, fn: fn}
}

// removeActivityListener leaves listeners of other handles in place.
func (v *LavalinkVoice) removeActivityListener(owner *lavalinkHandle) {
	v.activityMu.Lock()
	defer v.activityMu.Unlock()
	if listener, ok := v.activity[owner.guildID]; ok && listener.owner == owner {
		delete(v.activity, owner.guildID)
	}
}

func (v *LavalinkVoice) reportActivity(guildID snowflake.ID) {
	v.activityMu.Lock()
	fn := v.activity[guildID].fn
	v.activityMu.Unlock()

	if fn != nil {
		fn()
	}
}

func (v *LavalinkVoice) onTrackStart(player disgolink.Player, event lavalink.TrackStartEvent) {
	slog.Debug("track started", "guild", player.GuildID(), "track", event.Track.Info.Title)
	v.reportActivity(player.GuildID())
}

func (v *LavalinkVoice) onTrackEnd(player disgolink.Player, event lavalink.TrackEndEvent) {
	slog.Debug("track ended", "guild", player.GuildID(), "reason", event.Reason)
	v.reportActivity(player.GuildID())
}

// lavalinkHandle is a guild's voice session on the Lavalink node.
type lavalinkHandle struct {
	voice   *LavalinkVoice
	guildID snowflake.ID
}

// Disconnect destroys the player and leaves the voice channel.
func (h *lavalinkHandle) Disconnect(ctx context.Context) error {
	return h.voice.leaveChannel(ctx, h)
}

// OnActivity registers fn to be called when playback starts or ends.
func (h *lavalinkHandle) OnActivity(fn func()) {
	h.voice.setActivityListener(h, fn)
}

// Ensure LavalinkVoice and its handles implement the port interfaces.
var (
	_ ports.VoiceBackend     = (*LavalinkVoice)(nil)
	_ ports.ConnectionHandle = (*lavalinkHandle)(nil)
	_ ports.ActivitySource   = (*lavalinkHandle)(nil)
)
