package engine

import (
	"errors"

	"github.com/chessduel/duel/pkg/common"
)

var errSearchTimeout = errors.New("search timeout")

func iterativeDeepening(t *thread) {
	var ml = t.genRootMoves()
	if len(ml) != 0 {
		t.mainLine = mainLine{
			moves: []common.Move{ml[0]},
		}
	}
	if len(ml) <= 1 {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			if r == errSearchTimeout {
				return
			}
			panic(r)
		}
	}()

	for depth := 1; depth <= maxHeight; depth++ {
		var score = t.searchRoot(ml, depth)
		t.mainLine = mainLine{
			depth: depth,
			score: score,
			moves: t.stack[0].pv.toSlice(),
			nodes: t.nodes,
		}
		moveToBegin(ml, findMoveIndex(ml, t.mainLine.moves[0]))
		if t.progress != nil && t.nodes >= int64(t.engine.Options.ProgressMinNodes) {
			t.progress(t.currentSearchResult())
		}
		t.timeManager.OnIterationComplete(t.mainLine)
		if t.timeManager.IsDone() {
			return
		}
	}
}

func (t *thread) genRootMoves() []common.Move {
	var p = &t.stack[0].position
	var _, _, _, transMove, _ = t.engine.transTable.Read(p.Key)
	var ml = p.GenerateLegalMoves()
	if index := findMoveIndex(ml, transMove); index >= 0 {
		moveToBegin(ml, index)
	}
	return ml
}
