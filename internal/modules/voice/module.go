package voice

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/sgrvoice/internal/bot"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/ports"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/application/usecases"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/infrastructure"
	"github.com/sglre6355/sgrvoice/internal/modules/voice/presentation/discord"
)

// shutdownTimeout bounds how long Shutdown waits for voice disconnects.
const shutdownTimeout = 10 * time.Second

func init() {
	bot.Register(&VoiceModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*VoiceModule)(nil)

// VoiceModule provides voice channel commands backed by a per-guild
// connection registry.
type VoiceModule struct {
	config          *Config
	registry        *usecases.ConnectionRegistry
	commandHandlers *discord.CommandHandlers
	eventHandlers   *discord.EventHandlers
	lavalink        *infrastructure.LavalinkVoice
}

// Name returns the module name.
func (m *VoiceModule) Name() string {
	return "voice"
}

// Commands returns the slash commands for this module.
func (m *VoiceModule) Commands() []*discordgo.ApplicationCommand {
	return discord.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *VoiceModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"join":         m.commandHandlers.HandleJoin,
		"leave":        m.commandHandlers.HandleLeave,
		"voice-status": m.commandHandlers.HandleVoiceStatus,
	}
}

// EventHandlers returns the event handlers for this module.
func (m *VoiceModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			m.handleVoiceServerUpdate(s, event)
		},
		func(s *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			m.handleVoiceStateUpdate(s, event)
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *VoiceModule) LoadConfig() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return err
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init initializes the module.
func (m *VoiceModule) Init(deps bot.ModuleDependencies) error {
	if m.config == nil {
		m.config = &Config{SelfDeaf: true}
	}

	m.registry = usecases.NewConnectionRegistry(
		usecases.WithLogger(slog.Default().With("module", m.Name())),
		usecases.WithMetrics(deps.Metrics),
	)

	if deps.Session == nil {
		slog.Warn("voice module initialized without session, joining is disabled")
		m.initWithoutSession()
		return nil
	}

	return m.initWithSession(deps.Session)
}

func (m *VoiceModule) initWithoutSession() {
	// Leave and status still work against the empty registry.
	voiceChannel := usecases.NewVoiceChannelService(m.registry, nil, nil, nil)
	m.commandHandlers = discord.NewCommandHandlers(voiceChannel)
}

func (m *VoiceModule) initWithSession(session *discordgo.Session) error {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return err
	}

	backend, err := m.newBackend(session, botID)
	if err != nil {
		return err
	}

	voiceState := infrastructure.NewVoiceStateProvider(session.State)
	notifier := infrastructure.NewNotifier(session)

	voiceChannel := usecases.NewVoiceChannelService(
		m.registry,
		backend,
		voiceState,
		notifier,
	)

	m.commandHandlers = discord.NewCommandHandlers(voiceChannel)
	m.eventHandlers = discord.NewEventHandlers(botID, voiceChannel)

	return nil
}

func (m *VoiceModule) newBackend(
	session *discordgo.Session,
	botID snowflake.ID,
) (ports.VoiceBackend, error) {
	if m.config.LavalinkAddress == "" {
		slog.Info("voice module initialized with discordgo voice")
		return infrastructure.NewDiscordVoice(session, m.config.SelfDeaf), nil
	}

	lavalink, err := infrastructure.NewLavalinkVoice(session, botID, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
		SelfDeaf: m.config.SelfDeaf,
	})
	if err != nil {
		return nil, err
	}
	m.lavalink = lavalink

	slog.Info("voice module initialized with Lavalink")
	return lavalink, nil
}

// Shutdown disconnects every guild and releases the voice backend.
func (m *VoiceModule) Shutdown() error {
	if m.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		m.registry.Shutdown(ctx)
	}

	if m.lavalink != nil {
		m.lavalink.Close()
	}

	return nil
}

// Event handlers.

func (m *VoiceModule) handleVoiceServerUpdate(
	_ *discordgo.Session,
	event *discordgo.VoiceServerUpdate,
) {
	if m.lavalink != nil {
		m.lavalink.OnVoiceServerUpdate(event)
	}
}

func (m *VoiceModule) handleVoiceStateUpdate(
	s *discordgo.Session,
	event *discordgo.VoiceStateUpdate,
) {
	if m.lavalink != nil {
		m.lavalink.OnVoiceStateUpdate(event)
	}
	if m.eventHandlers != nil {
		m.eventHandlers.HandleVoiceStateUpdate(s, event)
	}
}
