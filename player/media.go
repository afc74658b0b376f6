package player

import (
	"fmt"
	"strconv"
	"strings"
)

// titleWidth is the fixed display width titles are truncated to at creation
// time. The truncation is permanent, not re-derived.
const titleWidth = 25

// Item is a queued playable: either a Media (a file forwarded on Telegram)
// or a Track (a remote YouTube item). The queue and pipeline only ever see
// this interface.
type Item interface {
	ID() string
	Title() string
	Duration() string // "MM:SS", "H:MM:SS" or the literal "LIVE"
	DurationSec() int // 0 for live/unknown
	Live() bool
	FilePath() string // empty until acquired
	SetFilePath(path string)
	URL() string
	MessageID() int
	SetMessageID(id int)
	RequestedBy() string
	SetRequestedBy(mention string)
	IsVideo() bool
}

// meta carries the fields shared by both Item variants.
type meta struct {
	id          string
	title       string
	duration    string
	durationSec int
	filePath    string
	messageID   int
	url         string
	requestedBy string
	video       bool
	live        bool
}

func (m *meta) ID() string                     { return m.id }
func (m *meta) Title() string                  { return m.title }
func (m *meta) Duration() string               { return m.duration }
func (m *meta) DurationSec() int               { return m.durationSec }
func (m *meta) Live() bool                     { return m.live }
func (m *meta) FilePath() string               { return m.filePath }
func (m *meta) SetFilePath(path string)        { m.filePath = path }
func (m *meta) URL() string                    { return m.url }
func (m *meta) MessageID() int                 { return m.messageID }
func (m *meta) SetMessageID(id int)            { m.messageID = id }
func (m *meta) RequestedBy() string            { return m.requestedBy }
func (m *meta) SetRequestedBy(mention string)  { m.requestedBy = mention }
func (m *meta) IsVideo() bool                  { return m.video }

// Media is an audio/voice/document file that already lives on Telegram.
// It is always audio-only and never live.
type Media struct {
	meta
}

func NewMedia(fileID, title string, durationSec int, filePath, url string, messageID int) *Media {
	if title == "" {
		title = "Telegram File"
	}
	return &Media{meta{
		id:          fileID,
		title:       Truncate(title, titleWidth),
		duration:    DurationString(durationSec),
		durationSec: durationSec,
		filePath:    filePath,
		messageID:   messageID,
		url:         url,
	}}
}

// Track is a remote YouTube item resolved by search or playlist expansion.
type Track struct {
	meta
	ChannelName string
	Thumbnail   string
	ViewCount   string
}

// NewTrack classifies the item as live when the reported duration is missing
// or the literal "LIVE" marker; live tracks get a zero duration and are
// exempt from duration ceilings.
func NewTrack(videoID, title, channel, durationDisplay, url, thumbnail string, messageID int, video bool) *Track {
	m := meta{
		id:        videoID,
		title:     Truncate(title, titleWidth),
		messageID: messageID,
		url:       url,
		video:     video,
	}
	if durationDisplay == "" || durationDisplay == "LIVE" {
		m.duration, m.durationSec, m.live = "LIVE", 0, true
	} else {
		m.duration = durationDisplay
		m.durationSec = ToSeconds(durationDisplay)
	}
	return &Track{
		meta:        m,
		ChannelName: channel,
		Thumbnail:   stripQuery(thumbnail),
	}
}

// --- Formatting helpers ---

// Truncate truncates a string to maxLen runes.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

// ToSeconds converts a colon-separated duration like "3:45" or "1:05:20"
// to seconds. Unparseable input yields 0.
func ToSeconds(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// DurationString renders seconds as "MM:SS", or "H:MM:SS" past the hour.
func DurationString(sec int) string {
	if sec < 0 {
		sec = 0
	}
	h, m, s := sec/3600, (sec/60)%60, sec%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// FormatSize renders a byte count as a human readable size.
func FormatSize(bytes float64) string {
	units := []string{"B", "KB", "MB", "GB"}
	i := 0
	for bytes >= 1024 && i < len(units)-1 {
		bytes /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", bytes, units[i])
}

// FormatETA renders remaining seconds as "MMm SSs".
func FormatETA(sec int) string {
	if sec < 0 {
		sec = 0
	}
	if sec >= 3600 {
		return fmt.Sprintf("%dh %02dm", sec/3600, (sec/60)%60)
	}
	return fmt.Sprintf("%dm %02ds", sec/60, sec%60)
}

func stripQuery(u string) string {
	if i := strings.Index(u, "?"); i >= 0 {
		return u[:i]
	}
	return u
}
