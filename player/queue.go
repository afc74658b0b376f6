package player

import (
	"errors"
	"sync"
)

// ErrRemoveOutOfRange is returned by ForceAdd when the requested removal
// offset does not exist in the post-replacement sequence.
var ErrRemoveOutOfRange = errors.New("queue: remove offset out of range")

// Queue holds one ordered sequence of Items per chat. The element at index 0
// is the currently playing (or about to play) item; everything behind it is
// pending. Queues are volatile and rebuilt empty on restart.
//
// All operations are safe for concurrent use and defined for an empty queue;
// absence is reported through (nil, false)-style results, never a panic.
type Queue struct {
	mu     sync.RWMutex
	queues map[int64][]Item
}

func NewQueue() *Queue {
	return &Queue{queues: make(map[int64][]Item)}
}

// Add appends an item to the tail and returns its 0-based position at the
// time of insertion. The position is a display hint only; it goes stale as
// soon as the queue advances.
func (q *Queue) Add(chatID int64, item Item) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queues[chatID] = append(q.queues[chatID], item)
	return len(q.queues[chatID]) - 1
}

// AddWithin appends like Add, but only while the queue holds fewer than limit
// items. The length check and the append run under one lock, so concurrent
// callers cannot push the queue past the limit. Returns the insertion position
// and whether the item was accepted; a non-positive limit disables the bound.
func (q *Queue) AddWithin(chatID int64, item Item, limit int) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit > 0 && len(q.queues[chatID]) >= limit {
		return -1, false
	}
	q.queues[chatID] = append(q.queues[chatID], item)
	return len(q.queues[chatID]) - 1, true
}

// CheckItem scans for the first item with the given id and returns its
// position, or (-1, nil) when absent.
func (q *Queue) CheckItem(chatID int64, itemID string) (int, Item) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for i, it := range q.queues[chatID] {
		if it.ID() == itemID {
			return i, it
		}
	}
	return -1, nil
}

// ForceAdd removes the current head, then inserts item as the new head.
// Inserting into an empty queue is just an append at position 0.
//
// An optional removeAt offset additionally excises the element at that
// position in the post-replacement sequence (used to promote a queued item
// to "play next" while deleting its old slot); the relative order of all
// other elements is preserved. An offset outside the sequence is an error.
func (q *Queue) ForceAdd(chatID int64, item Item, removeAt ...int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cur := q.queues[chatID]
	if len(cur) > 0 {
		cur = cur[1:]
	}
	next := make([]Item, 0, len(cur)+1)
	next = append(next, item)
	next = append(next, cur...)

	if len(removeAt) > 0 {
		at := removeAt[0]
		if at < 1 || at >= len(next) {
			// Restore nothing: reject before mutating the stored queue.
			return ErrRemoveOutOfRange
		}
		next = append(next[:at], next[at+1:]...)
	}

	q.queues[chatID] = next
	return nil
}

// GetCurrent returns the head item, if any.
func (q *Queue) GetCurrent(chatID int64) (Item, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if s := q.queues[chatID]; len(s) > 0 {
		return s[0], true
	}
	return nil, false
}

// GetNext pops the head and returns the new head. With peek set it returns
// the element behind the head without mutating anything. Either way, absence
// of a follow-up item is (nil, false); popping the lone element empties the
// queue.
func (q *Queue) GetNext(chatID int64, peek bool) (Item, bool) {
	if peek {
		q.mu.RLock()
		defer q.mu.RUnlock()
		if s := q.queues[chatID]; len(s) > 1 {
			return s[1], true
		}
		return nil, false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.queues[chatID]
	if len(s) == 0 {
		return nil, false
	}
	s = s[1:]
	q.queues[chatID] = s
	if len(s) > 0 {
		return s[0], true
	}
	return nil, false
}

// GetAll returns a snapshot of the full queue including the current head.
// The returned slice is safe to mutate independently of the live queue.
func (q *Queue) GetAll(chatID int64) []Item {
	q.mu.RLock()
	defer q.mu.RUnlock()
	s := q.queues[chatID]
	out := make([]Item, len(s))
	copy(out, s)
	return out
}

// RemoveCurrent pops the head if present; no-op on an empty queue.
func (q *Queue) RemoveCurrent(chatID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if s := q.queues[chatID]; len(s) > 0 {
		q.queues[chatID] = s[1:]
	}
}

// Clear empties the chat's queue.
func (q *Queue) Clear(chatID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.queues, chatID)
}

// Len reports the number of queued items including the current head.
func (q *Queue) Len(chatID int64) int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.queues[chatID])
}
