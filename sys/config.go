package sys

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken      string
	OwnerID       int64
	LoggerID      int64
	DatabasePath  string
	DurationLimit int // seconds
	QueueLimit    int
	PlaylistLimit int
	CookiesDir    string
	DownloadsDir  string
	SupportChat   string
	VideoPlay     bool
	Silent        bool
}

// Validate ensures the configuration is valid and meets requirements.
func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf(MsgConfigMissingToken)
	}
	if c.DurationLimit <= 0 {
		return fmt.Errorf("DURATION_LIMIT must be a positive number of minutes")
	}
	if c.QueueLimit <= 0 || c.PlaylistLimit <= 0 {
		return fmt.Errorf("QUEUE_LIMIT and PLAYLIST_LIMIT must be positive")
	}
	return nil
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./kanade.db"
	}

	silent, _ := strconv.ParseBool(os.Getenv("SILENT"))

	cfg := &Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		OwnerID:       envInt64("OWNER_ID", 0),
		LoggerID:      envInt64("LOGGER_ID", 0),
		DatabasePath:  fmt.Sprintf("%s?_journal_mode=WAL&_timeout=5000", dbPath),
		DurationLimit: envInt("DURATION_LIMIT", 150) * 60,
		QueueLimit:    envInt("QUEUE_LIMIT", 30),
		PlaylistLimit: envInt("PLAYLIST_LIMIT", 20),
		CookiesDir:    envDefault("COOKIES_DIR", "cookies"),
		DownloadsDir:  envDefault("DOWNLOADS_DIR", "downloads"),
		SupportChat:   envDefault("SUPPORT_CHAT", "https://t.me/kanade_support"),
		VideoPlay:     envBool("VIDEO_PLAY", true),
		Silent:        silent,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Silent {
		SetSilentMode(true)
	}

	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64); err == nil {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}
