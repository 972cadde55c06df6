package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chessduel/duel/pkg/common"
)

// Agent computes a move for the side to move in pos. pos is a private copy;
// implementations keep no game state between calls and must return once ctx
// is done.
type Agent interface {
	Compute(ctx context.Context, pos common.Position, budget Budget) (common.Move, error)
}

type Budget struct {
	MoveTime time.Duration
	Depth    int
}

const MaxDepth = 25

var ErrTimeout = errors.New("agent timeout")

// FailureError is an agent that gave up or returned garbage.
type FailureError struct {
	Agent string
	Err   error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Agent, e.Err)
}

func (e *FailureError) Unwrap() error {
	return e.Err
}

// Func adapts an ordinary function to Agent.
type Func func(ctx context.Context, pos common.Position, budget Budget) (common.Move, error)

func (f Func) Compute(ctx context.Context, pos common.Position, budget Budget) (common.Move, error) {
	return f(ctx, pos, budget)
}

// BudgetFor maps an engine skill level and search depth to a budget.
// Strong settings get more time.
func BudgetFor(level, depth int) Budget {
	depth = common.Min(depth, MaxDepth)
	var moveTime time.Duration
	switch {
	case level >= 20 && depth >= 20:
		moveTime = 10 * time.Second
	case level >= 15 || depth >= 15:
		moveTime = 5 * time.Second
	default:
		moveTime = 2 * time.Second
	}
	return Budget{MoveTime: moveTime, Depth: depth}
}

// Classify maps a compute error to ErrTimeout when the deadline passed and
// wraps anything else in FailureError.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var fe *FailureError
	if errors.As(err, &fe) {
		return err
	}
	return &FailureError{Agent: name, Err: err}
}
