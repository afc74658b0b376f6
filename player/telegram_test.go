package player_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kanade-music/kanade/player"
)

// fakeSource serves canned bytes. When gateFirst is set, the first Fetch
// blocks until release is closed (or ctx is done), signalling started.
type fakeSource struct {
	data      []byte
	gateFirst bool
	started   chan struct{}
	release   chan struct{}

	mu    sync.Mutex
	calls int
}

func newFakeSource(data []byte, gateFirst bool) *fakeSource {
	return &fakeSource{
		data:      data,
		gateFirst: gateFirst,
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (f *fakeSource) Fetch(ctx context.Context, fileID, dest string, progress func(received, total int64)) error {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first && f.gateFirst {
		close(f.started)
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := os.WriteFile(dest, f.data, 0o644); err != nil {
		return err
	}
	progress(int64(len(f.data)), int64(len(f.data)))
	return nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeStatus struct {
	key string

	mu       sync.Mutex
	edits    []string
	progress int // edits carrying the cancel affordance
}

func (s *fakeStatus) Key() string { return s.key }

func (s *fakeStatus) Edit(_ context.Context, text string, withCancel bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits = append(s.edits, text)
	if withCancel {
		s.progress++
	}
}

func (s *fakeStatus) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.edits) == 0 {
		return ""
	}
	return s.edits[len(s.edits)-1]
}

func (s *fakeStatus) progressEdits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func newTelegram(t *testing.T, src player.DownloadSource, durationLimit int, maxSize int64) (*player.Telegram, string) {
	t.Helper()
	dir := t.TempDir()
	return player.NewTelegram(src, player.NewGate(), dir, durationLimit, maxSize), dir
}

func att(uniqueID string) player.Attachment {
	return player.Attachment{
		FileID:      "fid-" + uniqueID,
		UniqueID:    uniqueID,
		FileName:    uniqueID + ".mp3",
		Title:       "Test Song",
		MimeType:    "audio/mpeg",
		Size:        1024,
		DurationSec: 60,
		MessageID:   7,
	}
}

func TestTelegram_DownloadSuccess(t *testing.T) {
	src := newFakeSource([]byte("audio-bytes"), false)
	tele, dir := newTelegram(t, src, 0, 0)

	m, err := tele.Download(context.Background(), att("u1"), &fakeStatus{key: "1:1"})
	require.NoError(t, err)
	require.Equal(t, "u1", m.ID())
	require.Equal(t, filepath.Join(dir, "u1.mp3"), m.FilePath())

	data, err := os.ReadFile(m.FilePath())
	require.NoError(t, err)
	require.Equal(t, []byte("audio-bytes"), data)
}

func TestTelegram_CacheHitSkipsTransfer(t *testing.T) {
	src := newFakeSource([]byte("x"), false)
	tele, dir := newTelegram(t, src, 0, 0)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "u1.mp3"), []byte("cached"), 0o644))

	m, err := tele.Download(context.Background(), att("u1"), &fakeStatus{key: "1:1"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "u1.mp3"), m.FilePath())
	require.Equal(t, 0, src.fetchCount())
}

func TestTelegram_ValidationBeforeTransfer(t *testing.T) {
	src := newFakeSource([]byte("x"), false)
	tele, _ := newTelegram(t, src, 150, 100)

	a := att("u1")
	a.DurationSec = 151
	status := &fakeStatus{key: "1:1"}
	_, err := tele.Download(context.Background(), a, status)
	require.ErrorIs(t, err, player.ErrDurationExceeded)
	require.NotEmpty(t, status.last())

	a = att("u2")
	a.Size = 101
	_, err = tele.Download(context.Background(), a, &fakeStatus{key: "1:2"})
	require.ErrorIs(t, err, player.ErrSizeExceeded)

	require.Equal(t, 0, src.fetchCount())
}

func TestTelegram_DuplicateActiveDownload(t *testing.T) {
	src := newFakeSource([]byte("x"), true)
	tele, _ := newTelegram(t, src, 0, 0)

	firstDone := make(chan error, 1)
	go func() {
		_, err := tele.Download(context.Background(), att("u1"), &fakeStatus{key: "1:1"})
		firstDone <- err
	}()

	<-src.started
	_, err := tele.Download(context.Background(), att("u1"), &fakeStatus{key: "1:2"})
	require.ErrorIs(t, err, player.ErrDuplicateDownload)

	close(src.release)
	require.NoError(t, <-firstDone)
	require.Equal(t, 1, src.fetchCount())
}

func TestTelegram_CancelMidTransfer(t *testing.T) {
	src := newFakeSource([]byte("x"), true)
	tele, _ := newTelegram(t, src, 0, 0)
	status := &fakeStatus{key: "1:1"}

	firstDone := make(chan error, 1)
	go func() {
		_, err := tele.Download(context.Background(), att("u1"), status)
		firstDone <- err
	}()

	<-src.started
	require.NoError(t, tele.Cancel(status.Key()))

	select {
	case err := <-firstDone:
		require.ErrorIs(t, err, player.ErrDownloadCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled download did not return")
	}

	// The active-set entry is cleared: the same identity downloads fine now.
	m, err := tele.Download(context.Background(), att("u1"), &fakeStatus{key: "1:3"})
	require.NoError(t, err)
	require.NotEmpty(t, m.FilePath())
}

// hookSource delegates Fetch to a test-provided function.
type hookSource struct {
	fn func(ctx context.Context, fileID, dest string, progress func(received, total int64)) error
}

func (h *hookSource) Fetch(ctx context.Context, fileID, dest string, progress func(received, total int64)) error {
	return h.fn(ctx, fileID, dest, progress)
}

func TestTelegram_ProgressEditsThrottled(t *testing.T) {
	src := &hookSource{fn: func(_ context.Context, _, dest string, progress func(received, total int64)) error {
		for i := int64(1); i <= 5; i++ {
			progress(i*10, 50)
		}
		return os.WriteFile(dest, []byte("x"), 0o644)
	}}
	tele, _ := newTelegram(t, src, 0, 0)
	status := &fakeStatus{key: "1:1"}

	_, err := tele.Download(context.Background(), att("u1"), status)
	require.NoError(t, err)

	// Five progress callbacks in one burst collapse to a single edit; only
	// that edit carries the cancel affordance.
	require.Equal(t, 1, status.progressEdits())
	require.Contains(t, status.last(), "Downloaded in")
}

func TestTelegram_NoProgressEditAfterCancel(t *testing.T) {
	src := &hookSource{}
	tele, _ := newTelegram(t, src, 0, 0)
	status := &fakeStatus{key: "1:1"}

	src.fn = func(_ context.Context, _, dest string, progress func(received, total int64)) error {
		require.NoError(t, tele.Cancel(status.Key()))
		// The throttle would still admit this one; cancellation must win.
		progress(10, 100)
		return os.WriteFile(dest, []byte("x"), 0o644)
	}

	_, err := tele.Download(context.Background(), att("u1"), status)
	require.ErrorIs(t, err, player.ErrDownloadCancelled)
	require.Equal(t, 0, status.progressEdits())
}

func TestTelegram_CancelUnknownKey(t *testing.T) {
	src := newFakeSource([]byte("x"), false)
	tele, _ := newTelegram(t, src, 0, 0)
	require.ErrorIs(t, tele.Cancel("9:9"), player.ErrNotFound)
}
