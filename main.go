package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kanade-music/kanade/player"
	"github.com/kanade-music/kanade/sys"
	"github.com/kanade-music/kanade/tgbot"
)

// maxTelegramFile caps replied-to file downloads.
const maxTelegramFile = 200 * 1024 * 1024

func main() {
	silent := flag.Bool("silent", false, "suppress console logging")
	logToFile := flag.Bool("log", false, "also write logs to a file")
	flag.Parse()

	sys.InitLogger(*silent, *logToFile)

	cfg, err := sys.LoadConfig()
	if err != nil {
		sys.LogFatal("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.DownloadsDir, 0o755); err != nil {
		sys.LogFatal("Cannot create downloads directory: %v", err)
	}

	if err := sys.InitDatabase(ctx, cfg.DatabasePath); err != nil {
		sys.LogFatal("Database error: %v", err)
	}
	defer sys.CloseDatabase()

	gate := player.NewGate()
	jar := player.NewCookieJar(cfg.CookiesDir)
	youtube := player.NewYouTube(jar, gate, cfg.DownloadsDir)
	queue := player.NewQueue()
	store := sys.NewChatStore()
	bridge := tgbot.NewCallBridge()

	bot, err := tgbot.New(cfg, bridge, queue, store)
	if err != nil {
		sys.LogFatal("Telegram session error: %v", err)
	}

	telegram := player.NewTelegram(bot.FileSource(), gate, cfg.DownloadsDir, cfg.DurationLimit, maxTelegramFile)
	pipeline := player.NewPipeline(queue, youtube, telegram, bridge, store, cfg)
	bot.Wire(pipeline, telegram)

	sys.LogInfo(sys.MsgBotReady, "kanade", os.Getpid())
	bot.Start(ctx)
	sys.LogInfo(sys.MsgBotShutdown, "kanade")
}
