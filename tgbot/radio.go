package tgbot

import (
	"context"
	"strconv"
	"strings"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kanade-music/kanade/player"
	"github.com/kanade-music/kanade/sys"
)

const (
	stationsPerPage = 5
	msgPickStation  = "Pick a radio station:"
)

// handleRadio opens the paged station picker.
func (b *Bot) handleRadio(ctx context.Context, _ *tg.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	if !b.groupOnly(ctx, msg) || !b.notBlacklisted(ctx, msg) {
		return
	}
	if _, err := b.bot.SendMessage(ctx, &tg.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        msgPickStation,
		ReplyMarkup: radioKeyboard(0),
	}); err != nil {
		sys.LogError("Could not send station picker in chat %d: %v", msg.Chat.ID, err)
	}
}

// handleRadioPage flips the picker to another page in place.
func (b *Bot) handleRadioPage(ctx context.Context, _ *tg.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	page, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "radio_pg:"))
	if err != nil || page < 0 {
		return
	}
	b.answerCallback(ctx, cb.ID, "")
	if _, err := b.bot.EditMessageReplyMarkup(ctx, &tg.EditMessageReplyMarkupParams{
		ChatID:      cb.Message.Message.Chat.ID,
		MessageID:   cb.Message.Message.ID,
		ReplyMarkup: radioKeyboard(page),
	}); err != nil {
		sys.LogDebug("Station page flip failed: %v", err)
	}
}

// handleStation starts the picked station. While a stream is running only
// privileged users may retune the chat.
func (b *Bot) handleStation(ctx context.Context, _ *tg.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID
	name := strings.TrimPrefix(cb.Data, "radio_st:")

	if b.store.IsCallActive(chatID) && !b.isPrivileged(ctx, chatID, cb.From.ID) {
		b.answerCallback(ctx, cb.ID, "Only admins can change the station while one is playing.")
		return
	}
	b.answerCallback(ctx, cb.ID, "Switching station...")

	status, err := newStatusTarget(ctx, b.bot, chatID, "Tuning to "+name+"...")
	if err != nil {
		return
	}
	requestedBy := mention(&cb.From)
	go func() {
		if err := b.pipeline.PlayStation(ctx, chatID, name, requestedBy, status.messageID, status); err != nil && !userFacing(err) {
			sys.LogError("Radio start failed in chat %d: %v", chatID, err)
		}
	}()
}

func (b *Bot) answerCallback(ctx context.Context, id, text string) {
	if _, err := b.bot.AnswerCallbackQuery(ctx, &tg.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
	}); err != nil {
		sys.LogDebug("Callback answer failed: %v", err)
	}
}

// radioKeyboard renders one page of station buttons plus the nav row. Pages
// past the end clamp to the last page.
func radioKeyboard(page int) *models.InlineKeyboardMarkup {
	names := player.StationNames()
	lastPage := (len(names) - 1) / stationsPerPage
	if page > lastPage {
		page = lastPage
	}
	start := page * stationsPerPage
	end := min(start+stationsPerPage, len(names))

	var rows [][]models.InlineKeyboardButton
	for _, name := range names[start:end] {
		rows = append(rows, []models.InlineKeyboardButton{
			{Text: name, CallbackData: "radio_st:" + name},
		})
	}

	var nav []models.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, models.InlineKeyboardButton{
			Text: "< Back", CallbackData: "radio_pg:" + strconv.Itoa(page-1),
		})
	}
	if page < lastPage {
		nav = append(nav, models.InlineKeyboardButton{
			Text: "Next >", CallbackData: "radio_pg:" + strconv.Itoa(page+1),
		})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}
