package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/filegrid/filegrid/internal/worker"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls.Add(1)
	return 0, nil
}

func TestSweeperRunsImmediatelyAndOnTicks(t *testing.T) {
	sweeper := &countingSweeper{}
	s := worker.NewSweeper(sweeper, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	// One immediate sweep plus at least a couple of ticks.
	assert.GreaterOrEqual(t, sweeper.calls.Load(), int32(3))
}
