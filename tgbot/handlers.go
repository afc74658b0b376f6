package tgbot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kanade-music/kanade/player"
	"github.com/kanade-music/kanade/sys"
)

// handlePlay builds the handler for /play, /vplay and /playforce. The actual
// resolution and transfer run in their own goroutine so one chat's download
// never blocks another chat's commands.
func (b *Bot) handlePlay(video, force bool) tg.HandlerFunc {
	return func(ctx context.Context, _ *tg.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}
		if !b.groupOnly(ctx, msg) || !b.notBlacklisted(ctx, msg) {
			return
		}

		req := player.PlayRequest{
			ChatID:      msg.Chat.ID,
			MessageID:   msg.ID,
			Query:       commandArg(msg.Text),
			Entities:    entitiesOf(msg),
			Attachment:  attachmentOf(msg.ReplyToMessage),
			RequestedBy: mention(msg.From),
			Video:       video && b.cfg.VideoPlay,
			Force:       force,
		}
		if req.Query == "" && len(req.Entities) == 0 && req.Attachment == nil {
			b.reply(ctx, msg.Chat.ID, "Give me a song name, a link, or reply to an audio file.")
			return
		}

		status, err := newStatusTarget(ctx, b.bot, msg.Chat.ID, player.MsgSearching)
		if err != nil {
			sys.LogError("Could not create status message in chat %d: %v", msg.Chat.ID, err)
			return
		}

		go func() {
			if err := b.pipeline.Play(ctx, req, status); err != nil && !userFacing(err) {
				sys.LogError("Play failed in chat %d: %v", msg.Chat.ID, err)
			}
		}()
	}
}

// handlePlayNext promotes a queued item (by its 1-based /queue position) to
// play immediately.
func (b *Bot) handlePlayNext(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.groupOnly(ctx, msg) || !b.notBlacklisted(ctx, msg) || !b.adminOnly(ctx, msg) {
		return
	}

	pos, err := strconv.Atoi(commandArg(msg.Text))
	items := b.queue.GetAll(msg.Chat.ID)
	if err != nil || pos < 1 || pos >= len(items) {
		b.reply(ctx, msg.Chat.ID, "Usage: /playnext <queue position>")
		return
	}
	itemID := items[pos].ID()

	status, serr := newStatusTarget(ctx, b.bot, msg.Chat.ID, player.MsgSearching)
	if serr != nil {
		return
	}
	go func() {
		if err := b.pipeline.PlayNext(ctx, msg.Chat.ID, itemID, status); err != nil && !userFacing(err) {
			sys.LogError("PlayNext failed in chat %d: %v", msg.Chat.ID, err)
		}
	}()
}

func (b *Bot) handlePauseResume(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.groupOnly(ctx, msg) || !b.adminOnly(ctx, msg) {
		return
	}
	if !b.store.IsCallActive(msg.Chat.ID) {
		b.reply(ctx, msg.Chat.ID, "Nothing is playing.")
		return
	}
	if err := b.streamer.PauseResume(ctx, msg.Chat.ID); err != nil {
		sys.LogError("Pause/resume failed in chat %d: %v", msg.Chat.ID, err)
		return
	}
	b.reply(ctx, msg.Chat.ID, "Toggled playback.")
}

func (b *Bot) handleSkip(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.groupOnly(ctx, msg) || !b.adminOnly(ctx, msg) {
		return
	}
	if !b.store.IsCallActive(msg.Chat.ID) {
		b.reply(ctx, msg.Chat.ID, "Nothing is playing.")
		return
	}
	status, err := newStatusTarget(ctx, b.bot, msg.Chat.ID, "Skipping...")
	if err != nil {
		return
	}
	go func() {
		if err := b.pipeline.Advance(ctx, msg.Chat.ID, status); err != nil {
			sys.LogError("Skip failed in chat %d: %v", msg.Chat.ID, err)
		}
	}()
}

func (b *Bot) handleStop(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.groupOnly(ctx, msg) || !b.adminOnly(ctx, msg) {
		return
	}
	b.queue.Clear(msg.Chat.ID)
	b.store.SetCallActive(msg.Chat.ID, false)
	if err := b.streamer.Stop(ctx, msg.Chat.ID); err != nil {
		sys.LogError("Stop failed in chat %d: %v", msg.Chat.ID, err)
	}
	b.reply(ctx, msg.Chat.ID, "Stopped and cleared the queue.")
}

func (b *Bot) handleQueue(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.groupOnly(ctx, msg) {
		return
	}
	items := b.queue.GetAll(msg.Chat.ID)
	if len(items) == 0 {
		b.reply(ctx, msg.Chat.ID, "Queue is empty.")
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Now playing: %s [%s]\n", items[0].Title(), items[0].Duration())
	for i, it := range items[1:] {
		fmt.Fprintf(&sb, "%d. %s [%s] — %s\n", i+1, it.Title(), it.Duration(), it.RequestedBy())
	}
	b.reply(ctx, msg.Chat.ID, player.Truncate(sb.String(), 4096))
}

// handleAuth grants or revokes the per-chat playback-control allowance for
// the user whose message was replied to.
func (b *Bot) handleAuth(grant bool) tg.HandlerFunc {
	return func(ctx context.Context, _ *tg.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || !b.groupOnly(ctx, msg) || !b.adminOnly(ctx, msg) {
			return
		}
		if msg.ReplyToMessage == nil || msg.ReplyToMessage.From == nil {
			b.reply(ctx, msg.Chat.ID, "Reply to the user you want to (un)authorize.")
			return
		}
		target := msg.ReplyToMessage.From.ID

		var err error
		if grant {
			err = sys.AddAuthUser(ctx, msg.Chat.ID, target)
		} else {
			err = sys.RemoveAuthUser(ctx, msg.Chat.ID, target)
		}
		if err != nil {
			sys.LogError("Auth update failed in chat %d: %v", msg.Chat.ID, err)
			return
		}
		if grant {
			b.reply(ctx, msg.Chat.ID, "User authorized.")
		} else {
			b.reply(ctx, msg.Chat.ID, "User deauthorized.")
		}
	}
}

// handleSetChannel points this group's playback at a linked channel;
// "/setchannel off" clears the redirect.
func (b *Bot) handleSetChannel(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.groupOnly(ctx, msg) || !b.adminOnly(ctx, msg) {
		return
	}
	arg := commandArg(msg.Text)
	if arg == "off" {
		if err := sys.SetChannelTarget(ctx, msg.Chat.ID, 0); err != nil {
			sys.LogError("Channel target clear failed: %v", err)
			return
		}
		b.reply(ctx, msg.Chat.ID, "Channel play disabled.")
		return
	}
	target, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || target == 0 {
		b.reply(ctx, msg.Chat.ID, "Usage: /setchannel <channel id> or /setchannel off")
		return
	}
	if err := sys.SetChannelTarget(ctx, msg.Chat.ID, target); err != nil {
		sys.LogError("Channel target update failed: %v", err)
		return
	}
	b.reply(ctx, msg.Chat.ID, "Playback redirected to the linked channel.")
}

// handleCancel serves the cancel button attached to progress updates.
func (b *Bot) handleCancel(ctx context.Context, _ *tg.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil {
		return
	}
	key := strings.TrimPrefix(cb.Data, "cancel_dl:")

	text := "Download cancelled."
	if err := b.downloader.Cancel(key); errors.Is(err, player.ErrNotFound) {
		text = "That download already finished."
	}
	if _, err := b.bot.AnswerCallbackQuery(ctx, &tg.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
		Text:            text,
	}); err != nil {
		sys.LogDebug("Callback answer failed: %v", err)
	}
}

func (b *Bot) handleDefault(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}
	if string(msg.Chat.Type) == "private" {
		if msg.From != nil {
			if err := sys.AddServedUser(ctx, msg.From.ID); err != nil {
				sys.LogDebug("Served-user record failed for %d: %v", msg.From.ID, err)
			}
		}
		b.reply(ctx, msg.Chat.ID, "Add me to a group and use /play there. Support: "+b.cfg.SupportChat)
	}
}

// commandArg strips the leading "/command" token, including any @botname
// suffix.
func commandArg(text string) string {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func mention(u *models.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// userFacing reports whether the pipeline already told the user about the
// failure, making an extra error log redundant.
func userFacing(err error) bool {
	return errors.Is(err, player.ErrSourceExhausted) ||
		errors.Is(err, player.ErrQueueFull) ||
		errors.Is(err, player.ErrDurationExceeded) ||
		errors.Is(err, player.ErrSizeExceeded) ||
		errors.Is(err, player.ErrDuplicateDownload) ||
		errors.Is(err, player.ErrDownloadCancelled)
}
