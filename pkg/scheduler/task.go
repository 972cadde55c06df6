package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/common"
)

type outcome struct {
	move common.Move
	err  error
}

// task is one outstanding computation. Only the scheduler holds it; the
// worker sees the snapshot and writes the result slot once.
type task struct {
	id       uint64
	color    common.Color
	seq      uint64
	snapshot common.Position
	deadline time.Time
	cancel   context.CancelFunc
	wanted   atomic.Bool
	result   chan outcome
	settled  chan struct{}
}

func (t *task) run(ctx context.Context, a agent.Agent, budget agent.Budget) {
	var res outcome
	defer func() {
		if r := recover(); r != nil {
			res = outcome{err: &agent.FailureError{Agent: t.agentName(), Err: fmt.Errorf("panic: %v", r)}}
		}
		t.result <- res
		close(t.settled)
	}()
	res.move, res.err = a.Compute(ctx, t.snapshot, budget)
}

// poll returns the result if the worker has settled.
func (t *task) poll() (outcome, bool) {
	select {
	case res := <-t.result:
		return res, true
	default:
		return outcome{}, false
	}
}

// abandon marks the result unwanted and tells the agent to stop.
func (t *task) abandon() {
	t.wanted.Store(false)
	t.cancel()
}

func (t *task) agentName() string {
	return t.color.String() + " agent"
}
