package tgbot

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/kanade-music/kanade/player"
)

func TestEntityText_UTF16Offsets(t *testing.T) {
	// Telegram counts offsets in UTF-16 code units; the emoji occupies two.
	text := "🎵 https://youtu.be/dQw4w9WgXcQ now"
	require.Equal(t, "https://youtu.be/dQw4w9WgXcQ", entityText(text, 3, 28))

	require.Equal(t, "", entityText("short", 0, 99))
	require.Equal(t, "", entityText("short", -1, 3))
}

func TestEntitiesOf(t *testing.T) {
	msg := &models.Message{
		Text: "play https://youtu.be/dQw4w9WgXcQ please",
		Entities: []models.MessageEntity{
			{Type: models.MessageEntityTypeBold, Offset: 0, Length: 4},
			{Type: models.MessageEntityTypeURL, Offset: 5, Length: 28},
			{Type: models.MessageEntityTypeTextLink, Offset: 34, Length: 6, URL: "https://youtu.be/hidden12345"},
		},
	}

	out := entitiesOf(msg)
	require.Len(t, out, 2)
	require.Equal(t, player.Entity{Text: "https://youtu.be/dQw4w9WgXcQ"}, out[0])
	require.Equal(t, player.Entity{URL: "https://youtu.be/hidden12345", TextLink: true}, out[1])
}

func TestAttachmentOf(t *testing.T) {
	require.Nil(t, attachmentOf(nil))
	require.Nil(t, attachmentOf(&models.Message{}))

	msg := &models.Message{
		ID: 42,
		Audio: &models.Audio{
			FileID:       "fid",
			FileUniqueID: "uid",
			FileName:     "song.mp3",
			Title:        "Song",
			MimeType:     "audio/mpeg",
			FileSize:     2048,
			Duration:     180,
		},
	}
	att := attachmentOf(msg)
	require.NotNil(t, att)
	require.Equal(t, "uid", att.UniqueID)
	require.Equal(t, "Song", att.Title)
	require.Equal(t, int64(2048), att.Size)
	require.Equal(t, 180, att.DurationSec)
	require.Equal(t, 42, att.MessageID)

	voice := &models.Message{ID: 7, Voice: &models.Voice{FileID: "v", FileUniqueID: "vu", Duration: 9}}
	att = attachmentOf(voice)
	require.NotNil(t, att)
	require.Equal(t, "vu", att.UniqueID)
	require.Equal(t, "", att.Title)
}

func TestCommandArg(t *testing.T) {
	require.Equal(t, "never gonna", commandArg("/play never gonna"))
	require.Equal(t, "", commandArg("/play"))
	require.Equal(t, "", commandArg(""))
	require.Equal(t, "5", commandArg("/playnext 5"))
}

func TestMention(t *testing.T) {
	require.Equal(t, "@user", mention(&models.User{Username: "user", FirstName: "A"}))
	require.Equal(t, "Ada Lovelace", mention(&models.User{FirstName: "Ada", LastName: "Lovelace"}))
	require.Equal(t, "Ada", mention(&models.User{FirstName: "Ada"}))
}

func TestCallBridge(t *testing.T) {
	ctx := context.Background()
	c := NewCallBridge()
	chat := int64(-100555)

	require.Error(t, c.PauseResume(ctx, chat))

	item := player.NewMedia("uid", "Song", 60, "/tmp/uid.mp3", "", 1)
	require.NoError(t, c.StartOrSwitch(ctx, chat, item))

	cur, ok := c.Current(chat)
	require.True(t, ok)
	require.Equal(t, "uid", cur.ID())

	require.NoError(t, c.PauseResume(ctx, chat))
	require.NoError(t, c.Stop(ctx, chat))
	_, ok = c.Current(chat)
	require.False(t, ok)

	// An item without a local path is not streamable.
	bare := player.NewMedia("uid2", "Song", 60, "", "", 1)
	require.Error(t, c.StartOrSwitch(ctx, chat, bare))
}
