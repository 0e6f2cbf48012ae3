package bot

import (
	"log/slog"
	"testing"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token %q, got %q", "test-token-123", cfg.DiscordToken)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("expected default log level info, got %v", cfg.LogLevel)
	}
	if cfg.MetricsAddress != "" {
		t.Errorf("expected metrics disabled by default, got %q", cfg.MetricsAddress)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	// Clear the environment variable
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ADDRESS", ":9090")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected log level debug, got %v", cfg.LogLevel)
	}
	if cfg.MetricsAddress != ":9090" {
		t.Errorf("expected metrics address %q, got %q", ":9090", cfg.MetricsAddress)
	}
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("LOG_LEVEL", "loud")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}
