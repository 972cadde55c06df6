package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/engine"
	"github.com/chessduel/duel/pkg/game"
)

var ErrAgentTurn = errors.New("side to move is agent-controlled")

var errNoAgent = errors.New("no agent attached")

type Config struct {
	Budget agent.Budget
	// Grace is added to the budget before a task is declared timed out.
	Grace time.Duration
	// Fallback picks a move when the agent fails or times out.
	// engine.QuickMove is used when nil.
	Fallback     func(common.Position) common.Move
	OnTransition func(Transition)
}

// Transition reports a slot state change. Move is set when a move was
// applied, Err when the agent failed.
type Transition struct {
	Color  common.Color
	TaskID uint64
	From   SlotState
	To     SlotState
	Move   common.Move
	Err    error
}

// Scheduler drives agent-controlled sides. All game mutations it performs go
// through Game.ApplyMoveAt with the sequence number of the snapshot the
// agent was given.
type Scheduler struct {
	game   *game.Game
	cfg    Config
	logger zerolog.Logger
	mode   atomic.Pointer[Mode]
	wake   chan struct{}

	mu     sync.Mutex
	agents [2]agent.Agent
	slots  [2]SlotState
	tasks  [2]*task
	nextID uint64
}

func New(g *game.Game, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.Fallback == nil {
		cfg.Fallback = engine.QuickMove
	}
	if cfg.Budget.MoveTime <= 0 {
		cfg.Budget.MoveTime = agent.BudgetFor(0, cfg.Budget.Depth).MoveTime
	}
	var s = &Scheduler{
		game:   g,
		cfg:    cfg,
		logger: logger,
		wake:   make(chan struct{}, 1),
	}
	var mode = HumanVsHuman
	s.mode.Store(&mode)
	return s
}

func (s *Scheduler) Game() *game.Game {
	return s.game
}

func (s *Scheduler) SetAgent(color common.Color, a agent.Agent) {
	s.mu.Lock()
	var events []Transition
	if t := s.tasks[color]; t != nil {
		events = append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
	}
	s.agents[color] = a
	s.mu.Unlock()
	s.emit(events)
	s.Notify()
}

func (s *Scheduler) Mode() Mode {
	return *s.mode.Load()
}

// SetMode switches control of the sides. Results of tasks whose side is no
// longer agent-controlled are discarded before SetMode returns.
func (s *Scheduler) SetMode(m Mode) {
	s.mode.Store(&m)
	s.mu.Lock()
	var events = s.reconcile(s.game.Snapshot(), m)
	s.mu.Unlock()
	s.emit(events)
	s.logger.Info().Stringer("mode", m).Msg("mode changed")
	s.Notify()
}

// Notify wakes Run after a change made outside the scheduler.
func (s *Scheduler) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) State(color common.Color) SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots[color]
}

func (s *Scheduler) States() [2]SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.slots
}

// UserMove plays a move for a human-controlled side to move.
func (s *Scheduler) UserMove(move common.Move) (*game.Snapshot, error) {
	var snap = s.game.Snapshot()
	if s.Mode()[snap.Position.SideToMove] == Agent {
		return nil, ErrAgentTurn
	}
	var next, err = s.game.ApplyMoveAt(snap.Seq, move)
	if err != nil {
		return nil, err
	}
	s.Notify()
	return next, nil
}

// Reset abandons all tasks and starts a new game.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	var events []Transition
	for _, t := range s.tasks {
		if t != nil {
			events = append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
		}
	}
	s.game.Reset()
	s.mu.Unlock()
	s.emit(events)
	s.Notify()
}

// LoadPosition abandons all tasks and sets up the position reached from fen
// by moves. On error the game and the tasks are left unchanged.
func (s *Scheduler) LoadPosition(fen string, moves []common.Move) error {
	s.mu.Lock()
	var err = s.game.LoadPosition(fen, moves)
	var events []Transition
	if err == nil {
		for _, t := range s.tasks {
			if t != nil {
				events = append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
			}
		}
	}
	s.mu.Unlock()
	s.emit(events)
	s.Notify()
	return err
}

// LoadFEN abandons all tasks and sets up the position.
func (s *Scheduler) LoadFEN(fen string) error {
	s.mu.Lock()
	var err = s.game.LoadFEN(fen)
	var events []Transition
	if err == nil {
		for _, t := range s.tasks {
			if t != nil {
				events = append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
			}
		}
	}
	s.mu.Unlock()
	s.emit(events)
	s.Notify()
	return err
}

// Step makes one scheduling decision without blocking: it drops unwanted
// tasks, consumes a settled result or an expired deadline of the side to
// move, and dispatches a task when an agent-controlled side is to move.
// It reports whether a move was applied.
func (s *Scheduler) Step(now time.Time) bool {
	s.mu.Lock()
	var applied, events = s.step(now)
	s.mu.Unlock()
	s.emit(events)
	return applied
}

func (s *Scheduler) step(now time.Time) (bool, []Transition) {
	var mode = *s.mode.Load()
	var snap = s.game.Snapshot()
	var events = s.reconcile(snap, mode)
	var applied = false

	var side = snap.Position.SideToMove
	if t := s.tasks[side]; t != nil {
		if res, ok := t.poll(); ok {
			applied, events = s.consume(t, snap, res, events)
		} else if !now.Before(t.deadline) {
			s.logger.Warn().
				Uint64("task", t.id).
				Stringer("color", t.color).
				Msg("agent timed out")
			applied, events = s.fallback(t, snap, TimedOut, agent.ErrTimeout, events)
		}
	}
	if !applied {
		applied, events = s.substitute(now, snap, mode, events)
	}

	if applied {
		snap = s.game.Snapshot()
		events = append(events, s.reconcile(snap, mode)...)
	}
	if ev, ok := s.dispatch(now, snap, mode); ok {
		events = append(events, ev)
	}
	return applied, events
}

// substitute plays the fallback move for an agent-controlled side to move
// that has no agent attached, reported as a failed task.
func (s *Scheduler) substitute(now time.Time, snap *game.Snapshot, mode Mode, events []Transition) (bool, []Transition) {
	var side = snap.Position.SideToMove
	if snap.Terminal.IsOver() || mode[side] != Agent ||
		s.tasks[side] != nil || s.agents[side] != nil {
		return false, events
	}
	s.nextID++
	var t = &task{
		id:       s.nextID,
		color:    side,
		seq:      snap.Seq,
		snapshot: snap.Position,
		deadline: now,
		cancel:   func() {},
	}
	s.tasks[side] = t
	s.slots[side] = Dispatched
	events = append(events, Transition{Color: side, TaskID: t.id, From: Idle, To: Dispatched})
	var cause = &agent.FailureError{Agent: t.agentName(), Err: errNoAgent}
	s.logger.Warn().
		Uint64("task", t.id).
		Stringer("color", side).
		Err(cause).
		Msg("agent failed")
	return s.fallback(t, snap, Completed, cause, events)
}

// reconcile drops tasks whose side is no longer agent-controlled or whose
// snapshot is no longer current.
func (s *Scheduler) reconcile(snap *game.Snapshot, mode Mode) []Transition {
	var events []Transition
	for color, t := range s.tasks {
		if t == nil {
			continue
		}
		if mode[color] != Agent || t.seq != snap.Seq || snap.Terminal.IsOver() {
			events = append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
		}
	}
	return events
}

func (s *Scheduler) consume(t *task, snap *game.Snapshot, res outcome, events []Transition) (bool, []Transition) {
	if !t.wanted.Load() {
		return false, append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
	}
	if res.err != nil {
		var err = agent.Classify(t.agentName(), res.err)
		s.logger.Warn().
			Uint64("task", t.id).
			Stringer("color", t.color).
			Err(err).
			Msg("agent failed")
		var state = Completed
		if errors.Is(err, agent.ErrTimeout) {
			state = TimedOut
		}
		return s.fallback(t, snap, state, err, events)
	}
	if _, err := s.game.ApplyMoveAt(t.seq, res.move); err != nil {
		s.logger.Warn().
			Uint64("task", t.id).
			Stringer("color", t.color).
			Stringer("move", res.move).
			Err(err).
			Msg("agent move rejected")
		return s.fallback(t, snap, Completed, &agent.FailureError{Agent: t.agentName(), Err: err}, events)
	}
	var played = s.game.Snapshot().LastMove
	return true, append(events, s.finish(t, Completed, played, nil)...)
}

func (s *Scheduler) fallback(t *task, snap *game.Snapshot, state SlotState, cause error, events []Transition) (bool, []Transition) {
	t.abandon()
	var move = s.cfg.Fallback(snap.Position)
	if move == common.MoveEmpty {
		// no legal move: the game is over and classified as such
		return false, append(events, s.finish(t, state, common.MoveEmpty, cause)...)
	}
	var next, err = s.game.ApplyMoveAt(t.seq, move)
	if err != nil {
		s.logger.Error().
			Uint64("task", t.id).
			Stringer("move", move).
			Err(err).
			Msg("fallback move rejected")
		return false, append(events, s.finish(t, state, common.MoveEmpty, cause)...)
	}
	return true, append(events, s.finish(t, state, next.LastMove, cause)...)
}

// finish moves the slot of t through state back to Idle and forgets t.
func (s *Scheduler) finish(t *task, state SlotState, move common.Move, cause error) []Transition {
	t.abandon()
	s.tasks[t.color] = nil
	s.slots[t.color] = Idle
	return []Transition{
		{Color: t.color, TaskID: t.id, From: Dispatched, To: state, Move: move, Err: cause},
		{Color: t.color, TaskID: t.id, From: state, To: Idle},
	}
}

func (s *Scheduler) dispatch(now time.Time, snap *game.Snapshot, mode Mode) (Transition, bool) {
	var side = snap.Position.SideToMove
	if snap.Terminal.IsOver() || mode[side] != Agent ||
		s.tasks[side] != nil || s.agents[side] == nil {
		return Transition{}, false
	}
	s.nextID++
	var a = s.agents[side]
	var deadline = now.Add(s.cfg.Budget.MoveTime + s.cfg.Grace)
	var ctx, cancel = context.WithDeadline(context.Background(), deadline)
	var t = &task{
		id:       s.nextID,
		color:    side,
		seq:      snap.Seq,
		snapshot: snap.Position,
		deadline: deadline,
		cancel:   cancel,
		result:   make(chan outcome, 1),
		settled:  make(chan struct{}),
	}
	t.wanted.Store(true)
	s.tasks[side] = t
	s.slots[side] = Dispatched
	go func() {
		t.run(ctx, a, s.cfg.Budget)
		s.Notify()
	}()
	return Transition{Color: side, TaskID: t.id, From: Idle, To: Dispatched}, true
}

func (s *Scheduler) emit(events []Transition) {
	for _, ev := range events {
		var e = s.logger.Debug()
		if ev.To != Idle && ev.To != Dispatched {
			e = s.logger.Info()
		}
		e = e.Uint64("task", ev.TaskID).
			Stringer("color", ev.Color).
			Stringer("from", ev.From).
			Stringer("to", ev.To)
		if ev.Move != common.MoveEmpty {
			e = e.Stringer("move", ev.Move)
		}
		if ev.Err != nil {
			e = e.Err(ev.Err)
		}
		e.Msg("slot transition")
		if s.cfg.OnTransition != nil {
			s.cfg.OnTransition(ev)
		}
	}
}

// Wait blocks until the task of the side to move settles, its deadline
// passes, Notify is called or ctx is done, then takes a Step.
func (s *Scheduler) Wait(ctx context.Context) (bool, error) {
	if s.Step(time.Now()) {
		return true, nil
	}
	s.mu.Lock()
	var t = s.tasks[s.game.SideToMove()]
	s.mu.Unlock()

	var settled <-chan struct{}
	var expired <-chan time.Time
	if t != nil {
		settled = t.settled
		var timer = time.NewTimer(time.Until(t.deadline))
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-settled:
	case <-expired:
	case <-s.wake:
	}
	return s.Step(time.Now()), nil
}

// Run drives the game until ctx is done. Outstanding tasks are abandoned on
// return.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.abandonAll()
	for {
		if _, err := s.Wait(ctx); err != nil {
			return err
		}
	}
}

func (s *Scheduler) abandonAll() {
	s.mu.Lock()
	var events []Transition
	for _, t := range s.tasks {
		if t != nil {
			events = append(events, s.finish(t, Cancelled, common.MoveEmpty, nil)...)
		}
	}
	s.mu.Unlock()
	s.emit(events)
}
