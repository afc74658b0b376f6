package player_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanade-music/kanade/player"
)

func TestNewTrack_LiveClassification(t *testing.T) {
	for _, display := range []string{"", "LIVE"} {
		tr := player.NewTrack("vid123", "Some Stream", "Chan", display,
			"https://www.youtube.com/watch?v=vid123", "", 1, false)
		require.True(t, tr.Live())
		require.Equal(t, "LIVE", tr.Duration())
		require.Equal(t, 0, tr.DurationSec())
	}
}

func TestNewTrack_DurationParsing(t *testing.T) {
	tr := player.NewTrack("vid123", "Song", "Chan", "3:45", "", "", 1, false)
	require.False(t, tr.Live())
	require.Equal(t, "3:45", tr.Duration())
	require.Equal(t, 225, tr.DurationSec())

	tr = player.NewTrack("vid123", "Long Song", "Chan", "1:05:20", "", "", 1, false)
	require.Equal(t, 3920, tr.DurationSec())
}

func TestNewTrack_TitleTruncatedPermanently(t *testing.T) {
	long := strings.Repeat("x", 40)
	tr := player.NewTrack("vid123", long, "Chan", "1:00", "", "", 1, false)
	require.Equal(t, 25, len([]rune(tr.Title())))
}

func TestNewTrack_ThumbnailQueryStripped(t *testing.T) {
	tr := player.NewTrack("vid123", "Song", "Chan", "1:00", "",
		"https://i.ytimg.com/vi/vid123/hqdefault.jpg?sqp=abc&rs=def", 1, false)
	require.Equal(t, "https://i.ytimg.com/vi/vid123/hqdefault.jpg", tr.Thumbnail)
}

func TestNewMedia_DefaultTitle(t *testing.T) {
	m := player.NewMedia("uid1", "", 90, "/tmp/a.mp3", "", 5)
	require.Equal(t, "Telegram File", m.Title())
	require.Equal(t, "01:30", m.Duration())
	require.False(t, m.Live())
	require.False(t, m.IsVideo())
}

func TestToSeconds(t *testing.T) {
	cases := map[string]int{
		"0:30":    30,
		"03:45":   225,
		"1:05:20": 3920,
		"":        0,
		"LIVE":    0,
		"1:2:3:4": 0,
		"ab:cd":   0,
	}
	for in, want := range cases {
		require.Equal(t, want, player.ToSeconds(in), "input %q", in)
	}
}

func TestDurationString(t *testing.T) {
	require.Equal(t, "00:00", player.DurationString(0))
	require.Equal(t, "03:45", player.DurationString(225))
	require.Equal(t, "1:05:20", player.DurationString(3920))
	require.Equal(t, "00:00", player.DurationString(-5))
}

func TestTruncate_RuneSafe(t *testing.T) {
	require.Equal(t, "héllo", player.Truncate("héllo", 10))
	require.Equal(t, "hél", player.Truncate("héllo", 3))
	require.Equal(t, "日本語", player.Truncate("日本語テスト", 3))
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "512.00 B", player.FormatSize(512))
	require.Equal(t, "1.00 KB", player.FormatSize(1024))
	require.Equal(t, "1.50 MB", player.FormatSize(1.5*1024*1024))
}

func TestFormatETA(t *testing.T) {
	require.Equal(t, "0m 45s", player.FormatETA(45))
	require.Equal(t, "2m 05s", player.FormatETA(125))
	require.Equal(t, "1h 01m", player.FormatETA(3665))
	require.Equal(t, "0m 00s", player.FormatETA(-1))
}
