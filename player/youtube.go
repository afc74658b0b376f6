package player

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"

	"github.com/kanade-music/kanade/sys"
)

// ===========================
// YouTube resolver
// ===========================

const watchBase = "https://www.youtube.com/watch?v="

var (
	ytURLRegex = regexp.MustCompile(`(https?://)?(www\.|m\.|music\.)?(youtube\.com/(watch\?v=|shorts/|playlist\?list=)|youtu\.be/)([A-Za-z0-9_-]{11}|PL[A-Za-z0-9_-]+)([&?][^\s]*)?`)
	videoIDRe  = regexp.MustCompile(`(?:v=|youtu\.be/|shorts/)([A-Za-z0-9_-]{11})`)
)

// Entity is a URL-bearing span of a message as the transport reports it.
// Plain URL entities carry the covered text; text-link entities carry the
// hidden target.
type Entity struct {
	Text     string
	URL      string
	TextLink bool
}

// YouTube resolves remote items: search, playlist expansion and acquisition.
// All yt-dlp work passes through the shared admission gate and draws cookies
// from the jar.
type YouTube struct {
	base string
	jar  *CookieJar
	gate Gate
	dir  string
}

func NewYouTube(jar *CookieJar, gate Gate, downloadsDir string) *YouTube {
	return &YouTube{base: watchBase, jar: jar, gate: gate, dir: downloadsDir}
}

// Valid reports whether the text looks like a YouTube video, shorts or
// playlist link.
func (y *YouTube) Valid(u string) bool {
	return ytURLRegex.MatchString(u)
}

// ExtractURL pulls the first usable link out of a message's entities,
// preferring a plain URL over a text-link target. Share-tracking "si"
// parameters are stripped so the same video always keys the same way.
func (y *YouTube) ExtractURL(entities []Entity) string {
	var link string
	for _, e := range entities {
		if !e.TextLink && e.Text != "" {
			link = e.Text
			break
		}
	}
	if link == "" {
		for _, e := range entities {
			if e.TextLink && e.URL != "" {
				link = e.URL
				break
			}
		}
	}
	if link == "" {
		return ""
	}
	link = strings.Split(link, "&si")[0]
	link = strings.Split(link, "?si")[0]
	return link
}

// ExtractVideoID returns the 11-char video id embedded in a watch, short or
// youtu.be link, or "" when the text carries none.
func ExtractVideoID(u string) string {
	if m := videoIDRe.FindStringSubmatch(u); len(m) == 2 {
		return m[1]
	}
	return ""
}

// Search resolves a free-text query (or a pasted link) to the single best
// track. Plain search goes first; the music-flavored index is the fallback
// for queries the general index misses.
func (y *YouTube) Search(ctx context.Context, query string, messageID int, video bool) *Track {
	if id := ExtractVideoID(query); id != "" {
		query = id
	}

	c := ytsearch.NewClient(nil)
	res, err := c.Search(ctx, query)
	if err != nil {
		sys.LogYouTubeWarn("Search failed for %q: %v", query, err)
	} else if len(res.Results) > 0 {
		r := res.Results[0]
		return NewTrack(r.VideoID, r.Title, r.Channel, r.Duration,
			y.base+r.VideoID, thumbnailURL(r.VideoID), messageID, video)
	}

	s := ytmusic.TrackSearch(query)
	mres, err := s.Next()
	if err != nil || mres == nil {
		return nil
	}
	for _, v := range mres.Tracks {
		if v.VideoID == "" {
			continue
		}
		channel := ""
		if len(v.Artists) > 0 {
			channel = v.Artists[0].Name
		}
		return NewTrack(v.VideoID, v.Title, channel, DurationString(v.Duration),
			y.base+v.VideoID, thumbnailURL(v.VideoID), messageID, video)
	}
	return nil
}

// Playlist expands a playlist link into at most limit tracks via a flat
// (metadata-only) extraction. Entries yt-dlp could not identify are skipped
// rather than failing the batch.
func (y *YouTube) Playlist(ctx context.Context, limit int, requestedBy, u string, video bool) []*Track {
	cmd, cleanup := newYtdlp()
	defer cleanup()

	res, err := cmd.
		FlatPlaylist().
		Print("%(id)s\t%(url)s\t%(title)s\t%(uploader)s\t%(duration)s").
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		IgnoreConfig().
		Run(ctx, append(buildYtdlpArgs(""), "--yes-playlist", u)...)
	if err != nil {
		sys.LogYouTubeWarn("Playlist fetch failed: %v", err)
		return nil
	}

	ls := strings.Split(strings.TrimSpace(res.Stdout), "\n")
	tracks := make([]*Track, 0, len(ls))
	for _, l := range ls {
		ps := strings.Split(l, "\t")
		if len(ps) < 5 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		sec := 0
		if f, err := strconv.ParseFloat(ps[4], 64); err == nil {
			sec = int(f)
		}
		// Entry URLs carry the playlist context; drop it so each track
		// resolves standalone.
		entryURL := strings.Split(ps[1], "&list=")[0]
		t := NewTrack(ps[0], ps[2], ps[3], DurationString(sec),
			entryURL, thumbnailURL(ps[0]), 0, video)
		t.SetRequestedBy(requestedBy)
		tracks = append(tracks, t)
		if len(tracks) >= limit {
			break
		}
	}
	return tracks
}

// Download acquires the media for a video id and returns the local file path,
// or a direct stream URL for live items. An existing file in the downloads
// directory is a cache hit and short-circuits everything, including the gate.
// Failures return "".
func (y *YouTube) Download(ctx context.Context, videoID string, video, live bool) string {
	u := y.base + videoID

	if live {
		return y.liveStreamURL(ctx, u, video)
	}

	ext := "webm"
	if video {
		ext = "mp4"
	}
	filename := filepath.Join(y.dir, videoID+"."+ext)
	if _, err := os.Stat(filename); err == nil {
		return filename
	}

	if err := y.gate.Acquire(ctx); err != nil {
		return ""
	}
	defer y.gate.Release()

	// Another waiter may have produced the file while we queued for a slot.
	if _, err := os.Stat(filename); err == nil {
		return filename
	}

	cookie := y.jar.Pick()
	args := append(buildYtdlpArgs(cookie), "--no-playlist")
	format := "bestaudio[ext=webm][acodec=opus]"
	if video {
		format = "(bestvideo[height<=?720][width<=?1280][ext=mp4])+(bestaudio)"
		args = append(args, "--merge-output-format", "mp4")
	}

	cmd, cleanup := newYtdlp()
	defer cleanup()

	res, err := cmd.
		Format(format).
		Output(filepath.Join(y.dir, "%(id)s.%(ext)s")).
		IgnoreConfig().
		Run(ctx, append(args, u)...)
	if err != nil {
		if isExtractorError(res) {
			// Extraction rejected outright: the cookie is presumed burned.
			y.jar.Evict(cookie)
		}
		stderr := ""
		if res != nil {
			stderr = strings.TrimSpace(res.Stderr)
		}
		sys.LogYouTubeWarn("Download failed for %s: %v %s", videoID, err, stderr)
		return ""
	}

	sys.LogDownload("Fetched %s.%s", videoID, ext)
	return filename
}

// liveStreamURL resolves a live broadcast to a direct manifest URL without
// downloading anything. The canonical watch URL is the fallback so playback
// can still be attempted when extraction fails.
func (y *YouTube) liveStreamURL(ctx context.Context, u string, video bool) string {
	format := "bestaudio"
	if video {
		format = "best"
	}

	cmd, cleanup := newYtdlp()
	defer cleanup()

	cookie := y.jar.Pick()
	res, err := cmd.
		Format(format).
		Print("%(url)s").
		IgnoreConfig().
		Run(ctx, append(buildYtdlpArgs(cookie), "--skip-download", u)...)
	if err != nil {
		sys.LogYouTubeWarn("Live URL extraction failed: %v", err)
		return u
	}
	for _, l := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if strings.HasPrefix(l, "http") {
			return l
		}
	}
	return u
}

// ===========================
// yt-dlp plumbing
// ===========================

func newYtdlp() (*ytdlp.Command, func()) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()

	if proxy := os.Getenv("YOUTUBE_PROXY"); proxy != "" {
		cmd.Proxy(proxy)
	}

	return cmd, func() {}
}

// buildYtdlpArgs returns the common args for yt-dlp invocations; cookie may
// be empty.
func buildYtdlpArgs(cookie string) []string {
	args := []string{
		"--no-check-certificates",
		"--no-warnings",
		"--geo-bypass",
		"--socket-timeout", "30",
		"--retries", "5",
	}
	if cookie != "" {
		args = append(args, "--cookies", cookie)
	}
	return args
}

// isExtractorError reports whether yt-dlp itself rejected the extraction, as
// opposed to a transport or process failure.
func isExtractorError(res *ytdlp.Result) bool {
	return res != nil && strings.Contains(res.Stderr, "ERROR:")
}

func thumbnailURL(videoID string) string {
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}
