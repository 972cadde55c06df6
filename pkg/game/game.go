package game

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chessduel/duel/pkg/common"
)

var (
	ErrStalePosition = errors.New("position changed since the move was requested")
	ErrGameOver      = errors.New("game is over")
)

// Snapshot is an immutable view of the game. Seq grows with every change,
// including resets, so it identifies the state a snapshot was taken from.
type Snapshot struct {
	Seq      uint64
	Position common.Position
	Ply      int
	InCheck  bool
	Terminal common.TerminalState
	LastMove common.Move
	// Moves played since the start position, len(Moves) == Ply. Shared, do
	// not modify.
	Moves []common.Move
}

// Game owns the live position. Writers are serialised; readers load the
// current snapshot and never block.
type Game struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	moves   []common.Move
	keys    map[uint64]int
	history []common.Position
}

func NewGame() *Game {
	var g = &Game{}
	g.reset(common.NewInitialPosition())
	return g
}

func NewGameFromFEN(fen string) (*Game, error) {
	var p, err = common.NewPositionFromFEN(fen)
	if err != nil {
		return nil, err
	}
	var g = &Game{}
	g.reset(p)
	return g, nil
}

func (g *Game) Snapshot() *Snapshot {
	return g.current.Load()
}

func (g *Game) Position() common.Position {
	return g.current.Load().Position
}

func (g *Game) Ply() int {
	return g.current.Load().Ply
}

func (g *Game) SideToMove() common.Color {
	return g.current.Load().Position.SideToMove
}

func (g *Game) FEN() string {
	var s = g.current.Load()
	return s.Position.String()
}

func (g *Game) IsInCheck(c common.Color) bool {
	var s = g.current.Load()
	return s.Position.IsInCheck(c)
}

// LegalMoves lists the legal moves of the piece on sq in the current position.
func (g *Game) LegalMoves(sq int) []common.Move {
	var s = g.current.Load()
	return s.Position.LegalMovesFrom(sq)
}

// Classify returns the cached terminal state of the current position,
// including threefold repetition.
func (g *Game) Classify() common.TerminalState {
	return g.current.Load().Terminal
}

// Moves returns the moves played since the start position.
func (g *Game) Moves() []common.Move {
	var s = g.current.Load()
	var result = make([]common.Move, len(s.Moves))
	copy(result, s.Moves)
	return result
}

// Positions returns the start position followed by the position after each move.
func (g *Game) Positions() []common.Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	var result = make([]common.Position, len(g.history))
	copy(result, g.history)
	return result
}

// ApplyMove plays move in the current position.
func (g *Game) ApplyMove(move common.Move) (*Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.apply(move)
}

// ApplyMoveAt plays move only if the game is still in the state identified
// by seq. It is used for moves computed from an earlier snapshot.
func (g *Game) ApplyMoveAt(seq uint64, move common.Move) (*Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur := g.current.Load().Seq; cur != seq {
		return nil, fmt.Errorf("%w: requested at %d, now %d", ErrStalePosition, seq, cur)
	}
	return g.apply(move)
}

func (g *Game) apply(move common.Move) (*Snapshot, error) {
	var cur = g.current.Load()
	if cur.Terminal.IsOver() {
		return nil, ErrGameOver
	}
	var child, err = cur.Position.Apply(move)
	if err != nil {
		return nil, err
	}
	var played, _ = cur.Position.ResolveMove(move)
	g.moves = append(g.moves, played)
	g.history = append(g.history, child)
	if child.Rule50 == 0 {
		g.keys = make(map[uint64]int)
	}
	g.keys[child.Key]++
	var next = g.snapshot(cur.Seq+1, child, cur.Ply+1, played)
	g.current.Store(next)
	return next, nil
}

// Reset starts a new game from the initial position.
func (g *Game) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset(common.NewInitialPosition())
}

// LoadFEN replaces the game with one starting at fen. On error the game is
// left unchanged.
func (g *Game) LoadFEN(fen string) error {
	var p, err = common.NewPositionFromFEN(fen)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset(p)
	return nil
}

// LoadPosition replaces the game with one starting at fen followed by moves,
// so ply count and repetition history cover the moves. On error the game is
// left unchanged.
func (g *Game) LoadPosition(fen string, moves []common.Move) error {
	var p, err = common.NewPositionFromFEN(fen)
	if err != nil {
		return err
	}
	var staged = &Game{}
	staged.reset(p)
	for i, move := range moves {
		if _, err := staged.apply(move); err != nil {
			return fmt.Errorf("move %d %v: %w", i+1, move, err)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.moves = staged.moves
	g.history = staged.history
	g.keys = staged.keys
	var next = *staged.current.Load()
	next.Seq = g.current.Load().Seq + 1
	g.current.Store(&next)
	return nil
}

func (g *Game) reset(p common.Position) {
	g.moves = nil
	g.history = []common.Position{p}
	g.keys = map[uint64]int{p.Key: 1}
	var seq uint64
	if cur := g.current.Load(); cur != nil {
		seq = cur.Seq + 1
	}
	g.current.Store(g.snapshot(seq, p, 0, common.MoveEmpty))
}

func (g *Game) snapshot(seq uint64, p common.Position, ply int, last common.Move) *Snapshot {
	var terminal = p.Classify()
	if !terminal.IsOver() && g.keys[p.Key] >= 3 {
		terminal = common.TerminalState{Kind: common.Draw, Reason: common.Repetition}
	}
	return &Snapshot{
		Seq:      seq,
		Position: p,
		Ply:      ply,
		InCheck:  p.IsCheck(),
		Terminal: terminal,
		LastMove: last,
		Moves:    g.moves[:len(g.moves):len(g.moves)],
	}
}
