package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/sglre6355/sgrvoice/internal/metrics"
)

// InteractionHandler answers one slash command through r.
type InteractionHandler func(s *discordgo.Session, i *discordgo.InteractionCreate, r Responder) error

// EventHandler is passed straight to discordgo's Session.AddHandler, so it
// must have one of the handler signatures discordgo accepts, for example
// func(*discordgo.Session, *discordgo.VoiceStateUpdate).
type EventHandler any

// ModuleDependencies is what the bot hands each module in Init.
type ModuleDependencies struct {
	// Session is nil when no Discord connection was opened.
	Session *discordgo.Session
	// Metrics may be nil; its methods then record nothing.
	Metrics *metrics.Metrics
}

// Module is a unit of bot functionality: slash commands, their handlers and
// gateway event handlers.
type Module interface {
	// Name identifies the module in logs and must be unique.
	Name() string

	// Commands lists the slash commands registered with Discord.
	Commands() []*discordgo.ApplicationCommand

	// CommandHandlers maps each command name to its handler.
	CommandHandlers() map[string]InteractionHandler

	// EventHandlers are added to the session after Init.
	EventHandlers() []EventHandler

	// Init wires the module once the session is open.
	Init(deps ModuleDependencies) error

	// Shutdown releases whatever Init acquired.
	Shutdown() error
}

// ConfigurableModule is implemented by modules that read their own settings.
type ConfigurableModule interface {
	// LoadConfig runs before the session is opened. An error aborts startup.
	LoadConfig() error
}
