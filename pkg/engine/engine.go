package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/chessduel/duel/pkg/agent"
	. "github.com/chessduel/duel/pkg/common"
)

var errNoLegalMove = errors.New("no legal move")

// Engine is the built-in agent. Searches run on private stacks and share
// only the transposition table, so one Engine may serve both sides.
type Engine struct {
	Options    Options
	transTable *transTable
	once       sync.Once
}

type SearchParams struct {
	// Positions is the game so far; the last one is searched.
	Positions []Position
	Limits    LimitsType
	Progress  func(SearchInfo)
}

type SearchInfo struct {
	Depth    int
	Score    int
	MainLine []Move
	Nodes    int64
	Time     time.Duration
}

type thread struct {
	engine      *Engine
	timeManager *simpleTimeManager
	historyKeys map[uint64]int
	progress    func(SearchInfo)
	start       time.Time
	nodes       int64
	mainLine    mainLine
	stack       [stackSize]struct {
		position Position
		moveList [MaxMoves]orderedMove
		pv       pv
		killer1  Move
		killer2  Move
	}
}

type pv struct {
	items [stackSize]Move
	size  int
}

type mainLine struct {
	moves []Move
	score int
	depth int
	nodes int64
}

func New(options Options) *Engine {
	return &Engine{Options: options}
}

func (e *Engine) Prepare() {
	e.once.Do(func() {
		e.transTable = newTransTable(Max(1, e.Options.Hash))
	})
}

// Clear forgets everything learned in previous searches.
func (e *Engine) Clear() {
	e.Prepare()
	e.transTable.Clear()
}

func (e *Engine) Search(ctx context.Context, searchParams SearchParams) SearchInfo {
	e.Prepare()
	var t = &thread{
		engine:      e,
		start:       time.Now(),
		historyKeys: getHistoryKeys(searchParams.Positions),
		progress:    searchParams.Progress,
	}
	var limits = searchParams.Limits
	if e.Options.MaxDepth > 0 && (limits.Depth == 0 || limits.Depth > e.Options.MaxDepth) {
		limits.Depth = e.Options.MaxDepth
	}
	t.timeManager = newSimpleTimeManager(ctx, t.start, limits)
	defer t.timeManager.Close()
	t.stack[0].position = searchParams.Positions[len(searchParams.Positions)-1]
	iterativeDeepening(t)
	return t.currentSearchResult()
}

// Compute implements agent.Agent. The best move of the last finished
// iteration is returned when the budget runs out.
func (e *Engine) Compute(ctx context.Context, pos Position, budget agent.Budget) (Move, error) {
	var info = e.Search(ctx, SearchParams{
		Positions: []Position{pos},
		Limits: LimitsType{
			MoveTime: budget.MoveTime,
			Depth:    budget.Depth,
		},
	})
	if len(info.MainLine) == 0 {
		return MoveEmpty, &agent.FailureError{Agent: e.Options.Name, Err: errNoLegalMove}
	}
	return info.MainLine[0], nil
}

func getHistoryKeys(positions []Position) map[uint64]int {
	var result = make(map[uint64]int)
	for i := len(positions) - 1; i >= 0; i-- {
		var p = &positions[i]
		result[p.Key]++
		if p.Rule50 == 0 {
			break
		}
	}
	return result
}

func (t *thread) currentSearchResult() SearchInfo {
	return SearchInfo{
		Depth:    t.mainLine.depth,
		MainLine: t.mainLine.moves,
		Score:    t.mainLine.score,
		Nodes:    t.nodes,
		Time:     time.Since(t.start),
	}
}

func (pv *pv) clear() {
	pv.size = 0
}

func (pv *pv) assign(m Move, child *pv) {
	pv.size = 1
	pv.items[0] = m
	if child.size > 0 {
		pv.size += child.size
		copy(pv.items[1:], child.items[:child.size])
	}
}

func (pv *pv) toSlice() []Move {
	var result = make([]Move, pv.size)
	copy(result, pv.items[:pv.size])
	return result
}

func (t *thread) clearPV(height int) {
	t.stack[height].pv.clear()
}

func (t *thread) assignPV(height int, m Move) {
	t.stack[height].pv.assign(m, &t.stack[height+1].pv)
}
