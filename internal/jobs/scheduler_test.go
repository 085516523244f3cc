package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) PruneIndex(context.Context) (int, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestScheduler_SweepSessions(t *testing.T) {
	pruner := &countingPruner{}
	s := NewScheduler(pruner, "0 0 * * * *", zerolog.Nop())

	s.sweepSessions()
	pruner.err = errors.New("redis down")
	s.sweepSessions()

	assert.Equal(t, int32(2), pruner.calls.Load())
}

func TestScheduler_Start(t *testing.T) {
	assert.Error(t, NewScheduler(&countingPruner{}, "not a cron spec", zerolog.Nop()).Start())
	assert.NoError(t, NewScheduler(nil, "0 0 * * * *", zerolog.Nop()).Start())

	s := NewScheduler(&countingPruner{}, "0 0 * * * *", zerolog.Nop())
	assert.NoError(t, s.Start())
	s.Stop()()
}
