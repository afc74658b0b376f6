package player_test

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kanade-music/kanade/player"
)

const chatID = int64(-100123)

func media(id string) *player.Media {
	return player.NewMedia(id, "title "+id, 60, "", "", 0)
}

func ids(items []player.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID()
	}
	return out
}

func TestQueue_AddPreservesInsertionOrder(t *testing.T) {
	q := player.NewQueue()

	require.Equal(t, 0, q.Add(chatID, media("a")))
	require.Equal(t, 1, q.Add(chatID, media("b")))
	require.Equal(t, 2, q.Add(chatID, media("c")))

	require.Equal(t, []string{"a", "b", "c"}, ids(q.GetAll(chatID)))
}

func TestQueue_GetCurrentLifecycle(t *testing.T) {
	q := player.NewQueue()

	_, ok := q.GetCurrent(chatID)
	require.False(t, ok)

	q.Add(chatID, media("a"))
	cur, ok := q.GetCurrent(chatID)
	require.True(t, ok)
	require.Equal(t, "a", cur.ID())

	q.RemoveCurrent(chatID)
	_, ok = q.GetCurrent(chatID)
	require.False(t, ok)

	// No-op on empty.
	q.RemoveCurrent(chatID)
	require.Equal(t, 0, q.Len(chatID))
}

func TestQueue_PeekNeverMutates(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))

	for i := 0; i < 10; i++ {
		next, ok := q.GetNext(chatID, true)
		require.True(t, ok)
		require.Equal(t, "b", next.ID())
	}
	require.Equal(t, 2, q.Len(chatID))

	q.RemoveCurrent(chatID)
	_, ok := q.GetNext(chatID, true)
	require.False(t, ok)
	require.Equal(t, 1, q.Len(chatID))
}

func TestQueue_GetNextPopsHead(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))

	next, ok := q.GetNext(chatID, false)
	require.True(t, ok)
	require.Equal(t, "b", next.ID())

	// Popping the lone element empties the queue and reports absent.
	_, ok = q.GetNext(chatID, false)
	require.False(t, ok)
	require.Equal(t, 0, q.Len(chatID))

	// Defined on empty too.
	_, ok = q.GetNext(chatID, false)
	require.False(t, ok)
}

func TestQueue_ForceAddReplacesHead(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))
	q.Add(chatID, media("c"))

	require.NoError(t, q.ForceAdd(chatID, media("x")))
	require.Equal(t, []string{"x", "b", "c"}, ids(q.GetAll(chatID)))
}

func TestQueue_ForceAddIntoEmpty(t *testing.T) {
	q := player.NewQueue()
	require.NoError(t, q.ForceAdd(chatID, media("x")))
	require.Equal(t, []string{"x"}, ids(q.GetAll(chatID)))
}

func TestQueue_ForceAddWithRemoveAt(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))
	q.Add(chatID, media("c"))

	require.NoError(t, q.ForceAdd(chatID, media("x"), 1))
	require.Equal(t, []string{"x", "c"}, ids(q.GetAll(chatID)))
}

func TestQueue_ForceAddRemoveAtOutOfRange(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))

	err := q.ForceAdd(chatID, media("x"), 5)
	require.ErrorIs(t, err, player.ErrRemoveOutOfRange)
	// The stored queue is untouched on rejection.
	require.Equal(t, []string{"a", "b"}, ids(q.GetAll(chatID)))

	err = q.ForceAdd(chatID, media("x"), 0)
	require.ErrorIs(t, err, player.ErrRemoveOutOfRange)
}

func TestQueue_CheckItem(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))

	pos, item := q.CheckItem(chatID, "b")
	require.Equal(t, 1, pos)
	require.Equal(t, "b", item.ID())

	pos, item = q.CheckItem(chatID, "zzz")
	require.Equal(t, -1, pos)
	require.Nil(t, item)
}

func TestQueue_GetAllIsSnapshot(t *testing.T) {
	q := player.NewQueue()
	q.Add(chatID, media("a"))
	q.Add(chatID, media("b"))

	snap := q.GetAll(chatID)
	snap[0] = media("mutated")
	require.Equal(t, []string{"a", "b"}, ids(q.GetAll(chatID)))
}

func TestQueue_AddWithinRefusesAtLimit(t *testing.T) {
	q := player.NewQueue()

	pos, ok := q.AddWithin(chatID, media("a"), 2)
	require.True(t, ok)
	require.Equal(t, 0, pos)
	pos, ok = q.AddWithin(chatID, media("b"), 2)
	require.True(t, ok)
	require.Equal(t, 1, pos)

	_, ok = q.AddWithin(chatID, media("c"), 2)
	require.False(t, ok)
	require.Equal(t, []string{"a", "b"}, ids(q.GetAll(chatID)))

	// A non-positive limit disables the bound.
	_, ok = q.AddWithin(chatID, media("c"), 0)
	require.True(t, ok)
	require.Equal(t, 3, q.Len(chatID))
}

func TestQueue_AddWithinNeverOvershootsConcurrently(t *testing.T) {
	q := player.NewQueue()
	const limit = 5

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 4*limit; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, ok := q.AddWithin(chatID, media(fmt.Sprintf("m%d", i)), limit); ok {
				accepted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, limit, q.Len(chatID))
	require.EqualValues(t, limit, accepted.Load())
}

func TestQueue_ClearAndIsolation(t *testing.T) {
	q := player.NewQueue()
	other := int64(-100999)
	q.Add(chatID, media("a"))
	q.Add(other, media("b"))

	q.Clear(chatID)
	require.Equal(t, 0, q.Len(chatID))
	require.Equal(t, 1, q.Len(other))
}
