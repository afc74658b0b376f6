package player

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kanade-music/kanade/sys"
)

// ===========================
// Pipeline orchestrator
// ===========================

// summaryLimit caps the playlist summary so it fits a single transport
// message.
const summaryLimit = 1948

var (
	ErrSourceExhausted = errors.New("pipeline: no results found")
	ErrQueueFull       = errors.New("pipeline: queue is full")
	ErrAcquireFailed   = errors.New("pipeline: failed to acquire media")
)

// User-facing messages.
const (
	MsgSearching        = "Searching..."
	MsgNotFound         = "No results found for that request."
	MsgDurationExceeded = "Track is too long; the limit is %s."
	MsgSizeExceeded     = "File is too large; the limit is %s."
	MsgDuplicateDownload = "That file is already being downloaded."
	MsgDownloadCancelled = "Download cancelled."
	MsgDownloadFailed    = "Download failed. Try again later."
	MsgDownloadDone      = "Downloaded in %s."
	MsgDownloadProgress  = "Downloading... %.1f%%\n%s of %s at %s/s\nETA: %s"
	MsgQueueFull         = "Queue is full (%d items max)."
	MsgQueued            = "Queued at position #%d: %s"
	MsgNowPlaying        = "Now playing: %s [%s]\nRequested by %s"
	MsgPlaylistSummary   = "Queued %d tracks from the playlist:\n%s"
	MsgNotInQueue        = "That track is not in the queue."
	MsgUnknownStation    = "That radio station does not exist."
	MsgAlreadyPlaying    = "That track is already playing."
	MsgAcquireFailed     = "Could not fetch that track. Try again later."
	MsgStreamEnded       = "Stream ended. Queue is empty."
)

// Resolver finds and acquires remote items.
type Resolver interface {
	Valid(u string) bool
	ExtractURL(entities []Entity) string
	Search(ctx context.Context, query string, messageID int, video bool) *Track
	Playlist(ctx context.Context, limit int, requestedBy, u string, video bool) []*Track
	Download(ctx context.Context, videoID string, video, live bool) string
}

// Downloader acquires items that already live on the transport.
type Downloader interface {
	Download(ctx context.Context, att Attachment, status StatusTarget) (*Media, error)
	Cancel(key string) error
}

// Streamer is the external playback sink.
type Streamer interface {
	StartOrSwitch(ctx context.Context, chatID int64, item Item) error
	PauseResume(ctx context.Context, chatID int64) error
	Stop(ctx context.Context, chatID int64) error
}

// Store exposes the chat-scoped state the pipeline consults.
type Store interface {
	IsCallActive(chatID int64) bool
	SetCallActive(chatID int64, active bool)
	ChannelPlayTarget(ctx context.Context, chatID int64) (int64, bool)
}

// PlayRequest is one user-initiated play command, already parsed by the
// transport. Exactly one source wins: an explicit URL beats the text query,
// which beats a replied-to attachment.
type PlayRequest struct {
	ChatID      int64
	MessageID   int
	Query       string
	Entities    []Entity
	Attachment  *Attachment
	RequestedBy string
	Video       bool
	Force       bool
}

// Pipeline composes the queue, the resolvers and the streaming sink. It owns
// no transfer logic of its own.
type Pipeline struct {
	queue      *Queue
	resolver   Resolver
	downloader Downloader
	streamer   Streamer
	store      Store

	durationLimit int
	queueLimit    int
	playlistLimit int
}

func NewPipeline(q *Queue, r Resolver, d Downloader, s Streamer, st Store, cfg *sys.Config) *Pipeline {
	return &Pipeline{
		queue:         q,
		resolver:      r,
		downloader:    d,
		streamer:      s,
		store:         st,
		durationLimit: cfg.DurationLimit,
		queueLimit:    cfg.QueueLimit,
		playlistLimit: cfg.PlaylistLimit,
	}
}

// Play resolves the request to an item, enqueues it and, when nothing is
// playing yet, acquires it and hands it to the streaming sink.
func (p *Pipeline) Play(ctx context.Context, req PlayRequest, status StatusTarget) error {
	playChat := req.ChatID
	if target, ok := p.store.ChannelPlayTarget(ctx, req.ChatID); ok {
		playChat = target
	}

	item, extra, err := p.resolve(ctx, req, status)
	if err != nil {
		return err
	}
	item.SetRequestedBy(req.RequestedBy)

	// Live items have no meaningful duration and bypass the ceiling.
	if !item.Live() && p.durationLimit > 0 && item.DurationSec() > p.durationLimit {
		status.Edit(ctx, fmt.Sprintf(MsgDurationExceeded, DurationString(p.durationLimit)), false)
		return ErrDurationExceeded
	}

	switch {
	case req.Force:
		// Force replaces the head, so the queue never grows past the limit
		// here; no bound to enforce.
		if err := p.ensureLocal(ctx, item); err != nil {
			status.Edit(ctx, MsgAcquireFailed, false)
			return err
		}
		if err := p.queue.ForceAdd(playChat, item); err != nil {
			return err
		}
		return p.start(ctx, playChat, item, status)

	case p.store.IsCallActive(playChat):
		pos, ok := p.queue.AddWithin(playChat, item, p.queueLimit)
		if !ok {
			status.Edit(ctx, fmt.Sprintf(MsgQueueFull, p.queueLimit), false)
			return ErrQueueFull
		}
		status.Edit(ctx, fmt.Sprintf(MsgQueued, pos, item.Title()), false)

	default:
		if _, ok := p.queue.AddWithin(playChat, item, p.queueLimit); !ok {
			status.Edit(ctx, fmt.Sprintf(MsgQueueFull, p.queueLimit), false)
			return ErrQueueFull
		}
		if err := p.ensureLocal(ctx, item); err != nil {
			p.queue.RemoveCurrent(playChat)
			status.Edit(ctx, MsgAcquireFailed, false)
			return err
		}
		if err := p.start(ctx, playChat, item, status); err != nil {
			return err
		}
	}

	if len(extra) > 0 {
		p.enqueueRest(ctx, playChat, extra, status)
	}
	return nil
}

// PlayStation switches the chat to a live radio stream. Picking a station
// supersedes whatever is queued: the queue is cleared and the station becomes
// the sole head, mirroring how a tuner works.
func (p *Pipeline) PlayStation(ctx context.Context, chatID int64, name, requestedBy string, messageID int, status StatusTarget) error {
	url, ok := StationURL(name)
	if !ok {
		status.Edit(ctx, MsgUnknownStation, false)
		return ErrSourceExhausted
	}

	playChat := chatID
	if target, tok := p.store.ChannelPlayTarget(ctx, chatID); tok {
		playChat = target
	}

	item := StationItem(name, url, messageID)
	item.SetRequestedBy(requestedBy)
	p.queue.Clear(playChat)
	p.queue.Add(playChat, item)
	return p.start(ctx, playChat, item, status)
}

// PlayNext promotes an already-queued item to play immediately, excising its
// old slot so it does not play twice.
func (p *Pipeline) PlayNext(ctx context.Context, chatID int64, itemID string, status StatusTarget) error {
	pos, item := p.queue.CheckItem(chatID, itemID)
	switch {
	case pos < 0:
		status.Edit(ctx, MsgNotInQueue, false)
		return ErrSourceExhausted
	case pos == 0:
		status.Edit(ctx, MsgAlreadyPlaying, false)
		return nil
	}

	if err := p.ensureLocal(ctx, item); err != nil {
		status.Edit(ctx, MsgAcquireFailed, false)
		return err
	}
	// After the head swap the promoted item's stale copy still sits at its
	// old offset; excise it in the same operation.
	if err := p.queue.ForceAdd(chatID, item, pos); err != nil {
		return err
	}
	return p.start(ctx, chatID, item, status)
}

// Advance pops the finished head and starts whatever follows; an empty queue
// stops the stream.
func (p *Pipeline) Advance(ctx context.Context, chatID int64, status StatusTarget) error {
	next, ok := p.queue.GetNext(chatID, false)
	if !ok {
		p.store.SetCallActive(chatID, false)
		if err := p.streamer.Stop(ctx, chatID); err != nil {
			sys.LogPlayer("Stop failed for chat %d: %v", chatID, err)
		}
		status.Edit(ctx, MsgStreamEnded, false)
		return nil
	}
	if err := p.ensureLocal(ctx, next); err != nil {
		// Skip the broken item rather than stalling the chat.
		sys.LogPlayer("Skipping unplayable item %s in chat %d", next.ID(), chatID)
		return p.Advance(ctx, chatID, status)
	}
	return p.start(ctx, chatID, next, status)
}

func (p *Pipeline) resolve(ctx context.Context, req PlayRequest, status StatusTarget) (Item, []*Track, error) {
	if u := p.resolver.ExtractURL(req.Entities); u != "" && p.resolver.Valid(u) {
		if strings.Contains(u, "list=") {
			tracks := p.resolver.Playlist(ctx, p.playlistLimit, req.RequestedBy, u, req.Video)
			if len(tracks) == 0 {
				status.Edit(ctx, MsgNotFound, false)
				return nil, nil, ErrSourceExhausted
			}
			return tracks[0], tracks[1:], nil
		}
		if t := p.resolver.Search(ctx, u, req.MessageID, req.Video); t != nil {
			return t, nil, nil
		}
		status.Edit(ctx, MsgNotFound, false)
		return nil, nil, ErrSourceExhausted
	}

	if q := strings.TrimSpace(req.Query); q != "" {
		if t := p.resolver.Search(ctx, q, req.MessageID, req.Video); t != nil {
			return t, nil, nil
		}
		status.Edit(ctx, MsgNotFound, false)
		return nil, nil, ErrSourceExhausted
	}

	if req.Attachment != nil {
		m, err := p.downloader.Download(ctx, *req.Attachment, status)
		if err != nil {
			return nil, nil, err
		}
		return m, nil, nil
	}

	status.Edit(ctx, MsgNotFound, false)
	return nil, nil, ErrSourceExhausted
}

// enqueueRest appends the remaining playlist entries and reports them as one
// truncated summary.
func (p *Pipeline) enqueueRest(ctx context.Context, chatID int64, tracks []*Track, status StatusTarget) {
	var sb strings.Builder
	added := 0
	for _, t := range tracks {
		if !t.Live() && p.durationLimit > 0 && t.DurationSec() > p.durationLimit {
			continue
		}
		pos, ok := p.queue.AddWithin(chatID, t, p.queueLimit)
		if !ok {
			break
		}
		added++
		fmt.Fprintf(&sb, "#%d %s [%s]\n", pos, t.Title(), t.Duration())
	}
	if added == 0 {
		return
	}
	summary := fmt.Sprintf(MsgPlaylistSummary, added, sb.String())
	status.Edit(ctx, Truncate(summary, summaryLimit), false)
}

// ensureLocal guarantees the item has a playable path or stream URL.
func (p *Pipeline) ensureLocal(ctx context.Context, item Item) error {
	if item.FilePath() != "" {
		return nil
	}
	path := p.resolver.Download(ctx, item.ID(), item.IsVideo(), item.Live())
	if path == "" {
		return ErrAcquireFailed
	}
	item.SetFilePath(path)
	return nil
}

func (p *Pipeline) start(ctx context.Context, chatID int64, item Item, status StatusTarget) error {
	if err := p.streamer.StartOrSwitch(ctx, chatID, item); err != nil {
		p.store.SetCallActive(chatID, false)
		status.Edit(ctx, MsgAcquireFailed, false)
		return err
	}
	p.store.SetCallActive(chatID, true)
	sys.LogPlayer("Now playing %s in chat %d", item.Title(), chatID)
	status.Edit(ctx, fmt.Sprintf(MsgNowPlaying, item.Title(), item.Duration(), item.RequestedBy()), false)
	return nil
}
