package tgbot

import (
	"context"
	"sync/atomic"

	tg "github.com/go-telegram/bot"

	"github.com/kanade-music/kanade/player"
	"github.com/kanade-music/kanade/sys"
)

// Bot wires the Telegram transport to the playback pipeline.
type Bot struct {
	bot        *tg.Bot
	pipeline   *player.Pipeline
	downloader player.Downloader
	streamer   player.Streamer
	queue      *player.Queue
	store      *sys.ChatStore
	cfg        *sys.Config

	broadcasting atomic.Bool
}

// New creates the API session. The pipeline cannot exist yet because its
// downloader needs this bot's file source; Wire completes the hookup.
func New(cfg *sys.Config, streamer player.Streamer, queue *player.Queue, store *sys.ChatStore) (*Bot, error) {
	b := &Bot{
		streamer: streamer,
		queue:    queue,
		store:    store,
		cfg:      cfg,
	}

	raw, err := tg.New(cfg.BotToken, tg.WithDefaultHandler(b.handleDefault))
	if err != nil {
		return nil, err
	}
	b.bot = raw
	return b, nil
}

// FileSource returns the download source backed by this bot's API session.
func (b *Bot) FileSource() player.DownloadSource {
	return newFileSource(b.bot)
}

// Wire attaches the pipeline and downloader and registers all routes. Must
// run before Start.
func (b *Bot) Wire(pipeline *player.Pipeline, downloader player.Downloader) {
	b.pipeline = pipeline
	b.downloader = downloader
	b.registerRoutes()
}

func (b *Bot) registerRoutes() {
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/play", tg.MatchTypePrefix, b.handlePlay(false, false))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/vplay", tg.MatchTypePrefix, b.handlePlay(true, false))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/playforce", tg.MatchTypePrefix, b.handlePlay(false, true))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/playnext", tg.MatchTypePrefix, b.handlePlayNext)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/pause", tg.MatchTypeExact, b.handlePauseResume)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/resume", tg.MatchTypeExact, b.handlePauseResume)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/skip", tg.MatchTypeExact, b.handleSkip)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/stop", tg.MatchTypeExact, b.handleStop)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/queue", tg.MatchTypeExact, b.handleQueue)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/auth", tg.MatchTypeExact, b.handleAuth(true))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/unauth", tg.MatchTypeExact, b.handleAuth(false))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/setchannel", tg.MatchTypePrefix, b.handleSetChannel)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/ban", tg.MatchTypePrefix, b.handleBan(true))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/unban", tg.MatchTypePrefix, b.handleBan(false))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/sudo", tg.MatchTypePrefix, b.handleSudo(true))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/unsudo", tg.MatchTypePrefix, b.handleSudo(false))
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/activechats", tg.MatchTypeExact, b.handleActiveChats)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/radio", tg.MatchTypeExact, b.handleRadio)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/broadcast", tg.MatchTypePrefix, b.handleBroadcast)
	b.bot.RegisterHandler(tg.HandlerTypeMessageText, "/stopbroadcast", tg.MatchTypeExact, b.handleStopBroadcast)
	b.bot.RegisterHandler(tg.HandlerTypeCallbackQueryData, "cancel_dl:", tg.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(tg.HandlerTypeCallbackQueryData, "radio_st:", tg.MatchTypePrefix, b.handleStation)
	b.bot.RegisterHandler(tg.HandlerTypeCallbackQueryData, "radio_pg:", tg.MatchTypePrefix, b.handleRadioPage)
}

// Start runs the long-polling loop until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	sys.LogInfo(sys.MsgBotStarting, "kanade")
	b.bot.Start(ctx)
}
