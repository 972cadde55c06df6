package engine

import (
	"context"
	"time"
)

// LimitsType bounds a single search. Zero fields mean no limit.
type LimitsType struct {
	MoveTime time.Duration
	Depth    int
	Nodes    int
	Infinite bool
}

type simpleTimeManager struct {
	ctx       context.Context
	start     time.Time
	limits    LimitsType
	hardLimit time.Duration
	cancel    context.CancelFunc
}

// MoveOverhead is kept in reserve so that the answer arrives before the
// caller's deadline.
const MoveOverhead = 20 * time.Millisecond

func newSimpleTimeManager(ctx context.Context, start time.Time, limits LimitsType) *simpleTimeManager {
	var tm = &simpleTimeManager{
		start:  start,
		limits: limits,
	}

	if limits.MoveTime > 0 {
		tm.hardLimit = limitDuration(limits.MoveTime-MoveOverhead, time.Millisecond, limits.MoveTime)
	}

	var cancel context.CancelFunc
	if tm.hardLimit != 0 {
		ctx, cancel = context.WithDeadline(ctx, start.Add(tm.hardLimit))
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	tm.ctx = ctx
	tm.cancel = cancel
	return tm
}

func (tm *simpleTimeManager) IsDone() bool {
	return tm.ctx.Err() != nil
}

func (tm *simpleTimeManager) OnNodesChanged(nodes int) {
	if tm.limits.Nodes > 0 && nodes >= tm.limits.Nodes {
		tm.cancel()
	}
}

func (tm *simpleTimeManager) OnIterationComplete(line mainLine) {
	if tm.limits.Infinite {
		return
	}
	if tm.limits.Depth != 0 && line.depth >= tm.limits.Depth {
		tm.cancel()
		return
	}
	if line.score >= winIn(line.depth-5) ||
		line.score <= lossIn(line.depth-5) {
		tm.cancel()
		return
	}
	// the next iteration would not finish in time
	if tm.hardLimit != 0 &&
		time.Since(tm.start) >= tm.hardLimit/2 {
		tm.cancel()
		return
	}
}

func (tm *simpleTimeManager) Close() {
	tm.cancel()
}

func limitDuration(v, min, max time.Duration) time.Duration {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
