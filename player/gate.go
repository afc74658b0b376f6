package player

import (
	"context"
	"runtime"
)

// Gate is the process-wide admission pool bounding simultaneous transfers.
// An acquisition that cannot obtain a slot suspends instead of failing.
type Gate chan struct{}

// NewGate sizes the pool from available parallelism, capped so a large host
// does not hammer the remote side.
func NewGate() Gate {
	n := runtime.NumCPU() * 2
	if n > 16 {
		n = 16
	}
	if n < 2 {
		n = 2
	}
	return make(Gate, n)
}

func (g Gate) Acquire(ctx context.Context) error {
	select {
	case g <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g Gate) Release() {
	<-g
}
