package tgbot

import (
	"context"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kanade-music/kanade/sys"
)

const (
	msgGroupOnly   = "This command only works in groups."
	msgBlacklisted = "You are banned from using this bot."
	msgAdminOnly   = "Only group admins can use this command."
)

// groupOnly rejects private-chat usage. Passing groups are recorded as served
// so broadcasts can reach them later.
func (b *Bot) groupOnly(ctx context.Context, msg *models.Message) bool {
	t := string(msg.Chat.Type)
	if t == "group" || t == "supergroup" {
		if err := sys.AddServedChat(ctx, msg.Chat.ID); err != nil {
			sys.LogDebug("Served-chat record failed for %d: %v", msg.Chat.ID, err)
		}
		return true
	}
	b.reply(ctx, msg.Chat.ID, msgGroupOnly)
	return false
}

// notBlacklisted rejects banned users before any work happens.
func (b *Bot) notBlacklisted(ctx context.Context, msg *models.Message) bool {
	if msg.From == nil {
		return false
	}
	if sys.IsBlacklisted(ctx, msg.From.ID) {
		b.reply(ctx, msg.Chat.ID, msgBlacklisted)
		return false
	}
	return true
}

// isPrivileged allows the owner, sudoers, per-chat authorized users and
// actual group admins to run playback-control commands.
func (b *Bot) isPrivileged(ctx context.Context, chatID, userID int64) bool {
	if userID == b.cfg.OwnerID {
		return true
	}
	if sys.IsSudo(ctx, userID) || sys.IsAuthUser(ctx, chatID, userID) {
		return true
	}

	member, err := b.bot.GetChatMember(ctx, &tg.GetChatMemberParams{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil || member == nil {
		return false
	}
	switch member.Type {
	case models.ChatMemberTypeOwner, models.ChatMemberTypeAdministrator:
		return true
	}
	return false
}

// adminOnly gates a handler behind isPrivileged.
func (b *Bot) adminOnly(ctx context.Context, msg *models.Message) bool {
	if msg.From == nil {
		return false
	}
	if b.isPrivileged(ctx, msg.Chat.ID, msg.From.ID) {
		return true
	}
	b.reply(ctx, msg.Chat.ID, msgAdminOnly)
	return false
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.bot.SendMessage(ctx, &tg.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		sys.LogDebug("Reply failed in chat %d: %v", chatID, err)
	}
}
