package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/muzposter/core/config"
)

const sample = `
telegram:
  token: "123:abc"
  admin_id: 42
logging:
  level: debug
bot:
  post_to: " @mychannel "
  username: "@muzbot"
songlink:
  user_country: DE
database:
  host: db
  user: bot
  name: muz
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.CoreConfig().Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "@mychannel", cfg.Bot.PostTo)
	assert.Equal(t, "muzbot", cfg.Bot.Username)
	assert.Equal(t, 3, cfg.Bot.PreviewThresholdSeconds)
	assert.Equal(t, "DE", cfg.Songlink.UserCountry)
	assert.Equal(t, "5432", cfg.Database.Port)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("POST_TO", "-100123")
	t.Setenv("SONGLINK_USER_COUNTRY", "US")
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "-100123", cfg.Bot.PostTo)
	assert.Equal(t, "US", cfg.Songlink.UserCountry)
}

func TestNormalizeRejects(t *testing.T) {
	base := func() *Config {
		cfg := &Config{Bot: BotConfig{PostTo: "@x"}}
		cfg.Telegram = coreconfig.TelegramConfig{Token: "t", AdminID: 1}
		return cfg
	}

	cfg := base()
	cfg.Bot.PostTo = ""
	assert.ErrorContains(t, Normalize(cfg), "post_to")

	cfg = base()
	cfg.Bot.PostTo = "mychannel"
	assert.ErrorContains(t, Normalize(cfg), "numeric chat id")

	cfg = base()
	cfg.Bot.PreviewThresholdSeconds = -1
	assert.Error(t, Normalize(cfg))

	cfg = base()
	cfg.Telegram.Token = ""
	assert.ErrorContains(t, Normalize(cfg), "token")

	cfg = base()
	require.NoError(t, Normalize(cfg))
	assert.False(t, cfg.Database.Enabled())
	assert.Empty(t, cfg.Database.Port)
}
