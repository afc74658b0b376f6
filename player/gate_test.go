package player_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kanade-music/kanade/player"
)

func TestGate_Capacity(t *testing.T) {
	g := player.NewGate()
	require.GreaterOrEqual(t, cap(g), 2)
	require.LessOrEqual(t, cap(g), 16)
}

func TestGate_AcquireRelease(t *testing.T) {
	g := make(player.Gate, 1)
	ctx := context.Background()

	require.NoError(t, g.Acquire(ctx))

	// Pool exhausted: a bounded wait must time out, not panic or fail fast.
	timed, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.Acquire(timed), context.DeadlineExceeded)

	g.Release()
	require.NoError(t, g.Acquire(ctx))
	g.Release()
}
