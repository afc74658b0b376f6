package tgbot

import (
	"context"
	"errors"
	"sync"

	"github.com/kanade-music/kanade/player"
	"github.com/kanade-music/kanade/sys"
)

var errNoStream = errors.New("tgbot: no active stream in this chat")

// CallBridge is the seam to the group-call streaming backend. It owns the
// per-chat playback state the rest of the bot consults; the actual audio
// transport is attached by the backend at startup.
//
// TODO: connect an ntgcalls-backed transport once the MTProto session
// handling lands.
type CallBridge struct {
	mu      sync.Mutex
	playing map[int64]player.Item
	paused  map[int64]bool
}

func NewCallBridge() *CallBridge {
	return &CallBridge{
		playing: make(map[int64]player.Item),
		paused:  make(map[int64]bool),
	}
}

// StartOrSwitch makes item the live stream for the chat, replacing whatever
// was playing.
func (c *CallBridge) StartOrSwitch(ctx context.Context, chatID int64, item player.Item) error {
	if item.FilePath() == "" {
		return errors.New("tgbot: item has no playable path")
	}
	c.mu.Lock()
	c.playing[chatID] = item
	delete(c.paused, chatID)
	c.mu.Unlock()
	sys.LogPlayer("Streaming %s to chat %d", item.FilePath(), chatID)
	return nil
}

func (c *CallBridge) PauseResume(ctx context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.playing[chatID]; !ok {
		return errNoStream
	}
	c.paused[chatID] = !c.paused[chatID]
	return nil
}

func (c *CallBridge) Stop(ctx context.Context, chatID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.playing, chatID)
	delete(c.paused, chatID)
	return nil
}

// Current returns the item the chat is streaming, if any.
func (c *CallBridge) Current(chatID int64) (player.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.playing[chatID]
	return it, ok
}
