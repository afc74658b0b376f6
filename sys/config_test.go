package sys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DURATION_LIMIT", "")
	t.Setenv("QUEUE_LIMIT", "")
	t.Setenv("SILENT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 150*60, cfg.DurationLimit) // minutes in env, seconds in config
	require.Equal(t, 30, cfg.QueueLimit)
	require.Equal(t, 20, cfg.PlaylistLimit)
	require.Equal(t, "cookies", cfg.CookiesDir)
	require.Equal(t, "downloads", cfg.DownloadsDir)
	require.Contains(t, cfg.DatabasePath, "_journal_mode=WAL")
}

func TestLoadConfig_MissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DURATION_LIMIT", "10")
	t.Setenv("QUEUE_LIMIT", "7")
	t.Setenv("OWNER_ID", "99")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 600, cfg.DurationLimit)
	require.Equal(t, 7, cfg.QueueLimit)
	require.Equal(t, int64(99), cfg.OwnerID)
}

func TestValidate_Rejections(t *testing.T) {
	c := &Config{BotToken: "t", DurationLimit: 0, QueueLimit: 1, PlaylistLimit: 1}
	require.Error(t, c.Validate())

	c = &Config{BotToken: "t", DurationLimit: 1, QueueLimit: 0, PlaylistLimit: 1}
	require.Error(t, c.Validate())

	c = &Config{BotToken: "t", DurationLimit: 1, QueueLimit: 1, PlaylistLimit: 1}
	require.NoError(t, c.Validate())
}
