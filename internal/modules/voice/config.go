package voice

import "errors"

// Config holds the voice module configuration.
type Config struct {
	// LavalinkAddress selects the Lavalink backend when set.
	// Otherwise the bot joins voice through discordgo directly.
	LavalinkAddress  string `env:"LAVALINK_ADDRESS"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD"`
	SelfDeaf         bool   `env:"VOICE_SELF_DEAF" envDefault:"true"`
}

func (c *Config) validate() error {
	if c.LavalinkAddress != "" && c.LavalinkPassword == "" {
		return errors.New("LAVALINK_PASSWORD is required when LAVALINK_ADDRESS is set")
	}
	return nil
}
