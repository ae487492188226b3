// Package config loads the bot configuration: the shared core sections plus the
// submission, song.link and journal settings.
package config

import (
	"fmt"
	"strconv"
	"strings"

	coreconfig "github.com/m3rciful/muzposter/core/config"
	coredatabase "github.com/m3rciful/muzposter/core/database"
	"github.com/m3rciful/muzposter/internal/songlink"
	"github.com/m3rciful/muzposter/internal/submission"
)

// BotConfig holds the submission flow settings.
type BotConfig struct {
	// PostTo is the destination channel: "@username" or a numeric chat id.
	PostTo string `yaml:"post_to" envconfig:"POST_TO"`
	// PreviewThresholdSeconds marks shorter audio as a still-downloading placeholder.
	PreviewThresholdSeconds int `yaml:"preview_threshold_seconds" envconfig:"PREVIEW_THRESHOLD_SECONDS"`
	// Username is used in the suggested-track credit; empty means the bot's own username.
	Username string `yaml:"username" envconfig:"BOT_USERNAME"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Bot      BotConfig           `yaml:"bot"`
	Songlink songlink.Config     `yaml:"songlink"`
	Database coredatabase.Config `yaml:"database"`
}

// CoreConfig exposes the embedded core section.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads the YAML file at path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	dest := strings.TrimSpace(cfg.Bot.PostTo)
	if dest == "" {
		return fmt.Errorf("bot.post_to is required")
	}
	if !strings.HasPrefix(dest, "@") {
		if _, err := strconv.ParseInt(dest, 10, 64); err != nil {
			return fmt.Errorf("bot.post_to must be @username or a numeric chat id, got %q", dest)
		}
	}
	cfg.Bot.PostTo = dest

	if cfg.Bot.PreviewThresholdSeconds < 0 {
		return fmt.Errorf("bot.preview_threshold_seconds must be >= 0")
	}
	if cfg.Bot.PreviewThresholdSeconds == 0 {
		cfg.Bot.PreviewThresholdSeconds = submission.DefaultPreviewThreshold
	}
	cfg.Bot.Username = strings.TrimPrefix(strings.TrimSpace(cfg.Bot.Username), "@")

	if cfg.Songlink.TimeoutSeconds < 0 {
		return fmt.Errorf("songlink.timeout_seconds must be >= 0")
	}
	if cfg.Database.Enabled() {
		cfg.Database.Normalize()
	}
	return nil
}
