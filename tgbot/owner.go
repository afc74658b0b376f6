package tgbot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kanade-music/kanade/sys"
)

// broadcastDelay spaces outgoing broadcast messages to stay under the API
// flood limits.
const broadcastDelay = 100 * time.Millisecond

// ownerOnly gates process-wide moderation commands behind the configured
// owner id.
func (b *Bot) ownerOnly(msg *models.Message) bool {
	return msg.From != nil && b.cfg.OwnerID != 0 && msg.From.ID == b.cfg.OwnerID
}

// targetUser resolves the subject of a moderation command: a replied-to user
// wins, otherwise a numeric id argument.
func targetUser(msg *models.Message) (int64, bool) {
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		return msg.ReplyToMessage.From.ID, true
	}
	id, err := strconv.ParseInt(commandArg(msg.Text), 10, 64)
	return id, err == nil && id != 0
}

func (b *Bot) handleBan(grant bool) tg.HandlerFunc {
	return func(ctx context.Context, _ *tg.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || !b.ownerOnly(msg) {
			return
		}
		target, ok := targetUser(msg)
		if !ok {
			b.reply(ctx, msg.Chat.ID, "Reply to a user or pass their id.")
			return
		}

		var err error
		if grant {
			err = sys.BlacklistUser(ctx, target)
		} else {
			err = sys.UnblacklistUser(ctx, target)
		}
		if err != nil {
			sys.LogError("Blacklist update failed for %d: %v", target, err)
			return
		}
		if grant {
			b.reply(ctx, msg.Chat.ID, "User banned from the bot.")
		} else {
			b.reply(ctx, msg.Chat.ID, "User unbanned.")
		}
	}
}

func (b *Bot) handleSudo(grant bool) tg.HandlerFunc {
	return func(ctx context.Context, _ *tg.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || !b.ownerOnly(msg) {
			return
		}
		target, ok := targetUser(msg)
		if !ok {
			b.reply(ctx, msg.Chat.ID, "Reply to a user or pass their id.")
			return
		}

		var err error
		if grant {
			err = sys.AddSudo(ctx, target)
		} else {
			err = sys.RemoveSudo(ctx, target)
		}
		if err != nil {
			sys.LogError("Sudo update failed for %d: %v", target, err)
			return
		}
		if grant {
			b.reply(ctx, msg.Chat.ID, "Sudo granted.")
		} else {
			b.reply(ctx, msg.Chat.ID, "Sudo revoked.")
		}
	}
}

// canBroadcast allows the owner and sudoers.
func (b *Bot) canBroadcast(ctx context.Context, msg *models.Message) bool {
	if msg.From == nil {
		return false
	}
	return b.ownerOnly(msg) || sys.IsSudo(ctx, msg.From.ID)
}

// parseBroadcast splits the command argument into the message text and the
// recipient flags: -user adds private users, -nochat skips groups.
func parseBroadcast(arg string) (text string, toUsers, skipChats bool) {
	var words []string
	for _, w := range strings.Fields(arg) {
		switch w {
		case "-user":
			toUsers = true
		case "-nochat":
			skipChats = true
		default:
			words = append(words, w)
		}
	}
	return strings.Join(words, " "), toUsers, skipChats
}

// handleBroadcast sends a message to every served group and, with -user, every
// served private user. Only one broadcast runs at a time.
func (b *Bot) handleBroadcast(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.canBroadcast(ctx, msg) {
		return
	}
	text, toUsers, skipChats := parseBroadcast(commandArg(msg.Text))
	if text == "" {
		b.reply(ctx, msg.Chat.ID, "Usage: /broadcast <message> [-user] [-nochat]")
		return
	}
	if !b.broadcasting.CompareAndSwap(false, true) {
		b.reply(ctx, msg.Chat.ID, "A broadcast is already running.")
		return
	}

	var chats, users []int64
	if !skipChats {
		chats, _ = sys.ServedChats(ctx)
	}
	if toUsers {
		users, _ = sys.ServedUsers(ctx)
	}
	if len(chats)+len(users) == 0 {
		b.broadcasting.Store(false)
		b.reply(ctx, msg.Chat.ID, "No recipients recorded yet.")
		return
	}

	b.reply(ctx, msg.Chat.ID, fmt.Sprintf("Broadcasting to %d chats and %d users...", len(chats), len(users)))
	go b.runBroadcast(ctx, msg.Chat.ID, text, chats, users)
}

func (b *Bot) runBroadcast(ctx context.Context, origin int64, text string, chats, users []int64) {
	defer b.broadcasting.Store(false)

	sent, failed := 0, 0
	for _, id := range append(chats, users...) {
		if !b.broadcasting.Load() || ctx.Err() != nil {
			break
		}
		if _, err := b.bot.SendMessage(ctx, &tg.SendMessageParams{ChatID: id, Text: text}); err != nil {
			failed++
			sys.LogDebug("Broadcast to %d failed: %v", id, err)
		} else {
			sent++
		}
		time.Sleep(broadcastDelay)
	}
	sys.LogInfo("Broadcast finished: %d sent, %d failed", sent, failed)
	b.reply(ctx, origin, fmt.Sprintf("Broadcast finished: %d sent, %d failed.", sent, failed))
}

// handleStopBroadcast aborts a running broadcast at the next recipient.
func (b *Bot) handleStopBroadcast(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.canBroadcast(ctx, msg) {
		return
	}
	if b.broadcasting.CompareAndSwap(true, false) {
		b.reply(ctx, msg.Chat.ID, "Stopping the broadcast.")
		return
	}
	b.reply(ctx, msg.Chat.ID, "No broadcast is running.")
}

// handleActiveChats reports every chat with a live stream, for the owner.
func (b *Bot) handleActiveChats(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || !b.ownerOnly(msg) {
		return
	}
	chats := b.store.ActiveChats()
	if len(chats) == 0 {
		b.reply(ctx, msg.Chat.ID, "No active streams.")
		return
	}
	text := "Active streams:"
	for _, id := range chats {
		text += "\n" + strconv.FormatInt(id, 10)
	}
	b.reply(ctx, msg.Chat.ID, text)
}
