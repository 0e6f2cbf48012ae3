package bot

import (
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config is the bot-wide configuration read from the environment.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,notEmpty"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// MetricsAddress enables the Prometheus endpoint when set, e.g. ":9090".
	MetricsAddress string `env:"METRICS_ADDRESS"`
}

// LoadConfig reads Config from the environment. It fails when DISCORD_TOKEN
// is unset or a value cannot be parsed.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
