package player

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kanade-music/kanade/sys"
)

// ===========================
// Telegram acquisition
// ===========================

// progressInterval is the minimum spacing between accepted progress edits
// for one transfer.
const progressInterval = 5 * time.Second

var (
	ErrDurationExceeded  = errors.New("telegram: duration exceeds the configured limit")
	ErrSizeExceeded      = errors.New("telegram: file exceeds the configured size limit")
	ErrDuplicateDownload = errors.New("telegram: this file is already being downloaded")
	ErrDownloadCancelled = errors.New("telegram: download cancelled")
	ErrNotFound          = errors.New("telegram: no active download for that message")
)

// Attachment describes the playable file of a replied-to message as the
// transport reports it.
type Attachment struct {
	FileID      string // transport handle used to fetch bytes
	UniqueID    string // stable asset identity; keys the active set and cache
	FileName    string
	Title       string
	MimeType    string
	Size        int64
	DurationSec int
	MessageID   int
}

// DownloadSource fetches an attachment's bytes into a local file, invoking
// progress as data arrives. It must honor ctx cancellation.
type DownloadSource interface {
	Fetch(ctx context.Context, fileID, dest string, progress func(received, total int64)) error
}

// StatusTarget is one editable status message. Key identifies it for
// cancellation lookups; withCancel asks the transport to attach a cancel
// affordance to the edit.
type StatusTarget interface {
	Key() string
	Edit(ctx context.Context, text string, withCancel bool)
}

// download is the per-transfer bookkeeping: the cancellation flag, the stop
// handle of the underlying transfer, and the progress throttle.
type download struct {
	cancelled atomic.Bool
	stop      context.CancelFunc
	limiter   *rate.Limiter
}

// Telegram acquires files that already live on Telegram. Concurrent
// acquisitions of the same physical asset are collapsed to one via the
// active set; total transfers share the process-wide admission gate.
type Telegram struct {
	src           DownloadSource
	gate          Gate
	dir           string
	durationLimit int   // seconds, 0 disables the check
	maxSize       int64 // bytes

	mu      sync.Mutex
	active  map[string]bool      // keyed by attachment unique id
	cancels map[string]*download // keyed by status-target key
}

func NewTelegram(src DownloadSource, gate Gate, dir string, durationLimit int, maxSize int64) *Telegram {
	return &Telegram{
		src:           src,
		gate:          gate,
		dir:           dir,
		durationLimit: durationLimit,
		maxSize:       maxSize,
		active:        make(map[string]bool),
		cancels:       make(map[string]*download),
	}
}

// Download validates the attachment, transfers it to the downloads directory
// and returns the resulting Media. Ceiling violations are checked before any
// transfer starts; an existing local file short-circuits everything.
func (t *Telegram) Download(ctx context.Context, att Attachment, status StatusTarget) (*Media, error) {
	if t.durationLimit > 0 && att.DurationSec > t.durationLimit {
		status.Edit(ctx, fmt.Sprintf(MsgDurationExceeded, DurationString(t.durationLimit)), false)
		return nil, ErrDurationExceeded
	}
	if t.maxSize > 0 && att.Size > t.maxSize {
		status.Edit(ctx, fmt.Sprintf(MsgSizeExceeded, FormatSize(float64(t.maxSize))), false)
		return nil, ErrSizeExceeded
	}

	dest := filepath.Join(t.dir, att.UniqueID+attachmentExt(att))
	if _, err := os.Stat(dest); err == nil {
		return t.media(att, dest), nil
	}

	t.mu.Lock()
	if t.active[att.UniqueID] {
		t.mu.Unlock()
		status.Edit(ctx, MsgDuplicateDownload, false)
		return nil, ErrDuplicateDownload
	}
	t.active[att.UniqueID] = true
	t.mu.Unlock()

	dctx, stop := context.WithCancel(ctx)
	d := &download{
		stop:    stop,
		limiter: rate.NewLimiter(rate.Every(progressInterval), 1),
	}
	t.mu.Lock()
	t.cancels[status.Key()] = d
	t.mu.Unlock()

	// Bookkeeping is dropped on every exit path so a follow-up acquisition
	// of the same asset is never falsely reported as duplicate.
	defer func() {
		stop()
		t.mu.Lock()
		delete(t.active, att.UniqueID)
		delete(t.cancels, status.Key())
		t.mu.Unlock()
	}()

	if err := t.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	defer t.gate.Release()

	start := time.Now()
	progress := func(received, total int64) {
		if d.cancelled.Load() || !d.limiter.Allow() {
			return
		}
		status.Edit(ctx, progressText(received, total, time.Since(start)), true)
	}

	sys.LogDownload("Downloading %s (%s)", att.UniqueID, FormatSize(float64(att.Size)))
	err := t.src.Fetch(dctx, att.FileID, dest, progress)
	if d.cancelled.Load() || errors.Is(err, context.Canceled) {
		_ = os.Remove(dest)
		status.Edit(ctx, MsgDownloadCancelled, false)
		return nil, ErrDownloadCancelled
	}
	if err != nil {
		_ = os.Remove(dest)
		sys.LogError("Telegram download failed for %s: %v", att.UniqueID, err)
		status.Edit(ctx, MsgDownloadFailed, false)
		return nil, err
	}

	status.Edit(ctx, fmt.Sprintf(MsgDownloadDone, time.Since(start).Round(time.Second)), false)
	return t.media(att, dest), nil
}

// Cancel signals the acquisition identified by a status-target key to stop.
// The flag is observed at the next progress callback; the transfer itself is
// asked to stop immediately.
func (t *Telegram) Cancel(key string) error {
	t.mu.Lock()
	d := t.cancels[key]
	t.mu.Unlock()
	if d == nil {
		return ErrNotFound
	}
	d.cancelled.Store(true)
	d.stop()
	return nil
}

func (t *Telegram) media(att Attachment, path string) *Media {
	title := att.Title
	if title == "" {
		title = att.FileName
	}
	return NewMedia(att.UniqueID, title, att.DurationSec, path, "", att.MessageID)
}

// progressText renders one throttled progress update.
func progressText(received, total int64, elapsed time.Duration) string {
	pct := 0.0
	if total > 0 {
		pct = float64(received) / float64(total) * 100
	}
	speed := float64(received) / max(elapsed.Seconds(), 0.001)
	eta := 0
	if speed > 0 && total > received {
		eta = int(float64(total-received) / speed)
	}
	return fmt.Sprintf(MsgDownloadProgress,
		pct, FormatSize(float64(received)), FormatSize(float64(total)),
		FormatSize(speed), FormatETA(eta))
}

// attachmentExt derives the local file extension, preferring the declared
// file name over the mime type.
func attachmentExt(att Attachment) string {
	if ext := filepath.Ext(att.FileName); ext != "" {
		return ext
	}
	switch att.MimeType {
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/flac":
		return ".flac"
	case "video/mp4":
		return ".mp4"
	case "video/webm", "audio/webm":
		return ".webm"
	}
	return ".bin"
}
