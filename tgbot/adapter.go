package tgbot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
	"unicode/utf16"

	tg "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/kanade-music/kanade/player"
	"github.com/kanade-music/kanade/sys"
)

const fetchChunkSize = 64 * 1024

// statusTarget is one editable status message the pipeline reports into.
type statusTarget struct {
	bot       *tg.Bot
	chatID    int64
	messageID int
}

func newStatusTarget(ctx context.Context, b *tg.Bot, chatID int64, text string) (*statusTarget, error) {
	msg, err := b.SendMessage(ctx, &tg.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return nil, err
	}
	return &statusTarget{bot: b, chatID: chatID, messageID: msg.ID}, nil
}

// Key identifies this status message for cancellation lookups.
func (s *statusTarget) Key() string {
	return fmt.Sprintf("%d:%d", s.chatID, s.messageID)
}

func (s *statusTarget) Edit(ctx context.Context, text string, withCancel bool) {
	params := &tg.EditMessageTextParams{
		ChatID:    s.chatID,
		MessageID: s.messageID,
		Text:      text,
	}
	if withCancel {
		params.ReplyMarkup = &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{{
				{Text: "Cancel", CallbackData: "cancel_dl:" + s.Key()},
			}},
		}
	}
	if _, err := s.bot.EditMessageText(ctx, params); err != nil {
		sys.LogDebug("Status edit failed in chat %d: %v", s.chatID, err)
	}
}

// fileSource fetches Telegram-hosted files over the Bot API file endpoint.
type fileSource struct {
	bot    *tg.Bot
	client *http.Client
}

func newFileSource(b *tg.Bot) *fileSource {
	return &fileSource{
		bot:    b,
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// Fetch streams the file identified by fileID into dest in fixed-size chunks,
// reporting progress after each chunk. Honors ctx cancellation between chunks.
func (f *fileSource) Fetch(ctx context.Context, fileID, dest string, progress func(received, total int64)) error {
	file, err := f.bot.GetFile(ctx, &tg.GetFileParams{FileID: fileID})
	if err != nil {
		return fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.bot.FileDownloadLink(file), nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("file endpoint returned %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	total := resp.ContentLength
	var received int64
	buf := make([]byte, fetchChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			received += int64(n)
			progress(received, total)
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// attachmentOf maps the replied-to message's playable file, if any.
func attachmentOf(msg *models.Message) *player.Attachment {
	if msg == nil {
		return nil
	}
	switch {
	case msg.Audio != nil:
		a := msg.Audio
		title := a.Title
		if title == "" {
			title = a.FileName
		}
		return &player.Attachment{
			FileID:      a.FileID,
			UniqueID:    a.FileUniqueID,
			FileName:    a.FileName,
			Title:       title,
			MimeType:    a.MimeType,
			Size:        a.FileSize,
			DurationSec: a.Duration,
			MessageID:   msg.ID,
		}
	case msg.Voice != nil:
		v := msg.Voice
		return &player.Attachment{
			FileID:      v.FileID,
			UniqueID:    v.FileUniqueID,
			MimeType:    v.MimeType,
			Size:        v.FileSize,
			DurationSec: v.Duration,
			MessageID:   msg.ID,
		}
	case msg.Video != nil:
		v := msg.Video
		return &player.Attachment{
			FileID:      v.FileID,
			UniqueID:    v.FileUniqueID,
			FileName:    v.FileName,
			MimeType:    v.MimeType,
			Size:        v.FileSize,
			DurationSec: v.Duration,
			MessageID:   msg.ID,
		}
	case msg.Document != nil:
		d := msg.Document
		return &player.Attachment{
			FileID:    d.FileID,
			UniqueID:  d.FileUniqueID,
			FileName:  d.FileName,
			Title:     d.FileName,
			MimeType:  d.MimeType,
			Size:      d.FileSize,
			MessageID: msg.ID,
		}
	}
	return nil
}

// entitiesOf converts the message's URL-bearing entities. Telegram reports
// offsets in UTF-16 code units.
func entitiesOf(msg *models.Message) []player.Entity {
	var out []player.Entity
	for _, e := range msg.Entities {
		switch e.Type {
		case models.MessageEntityTypeURL:
			out = append(out, player.Entity{Text: entityText(msg.Text, e.Offset, e.Length)})
		case models.MessageEntityTypeTextLink:
			out = append(out, player.Entity{URL: e.URL, TextLink: true})
		}
	}
	return out
}

func entityText(text string, offset, length int) string {
	u16 := utf16.Encode([]rune(text))
	if offset < 0 || offset+length > len(u16) {
		return ""
	}
	return string(utf16.Decode(u16[offset : offset+length]))
}
