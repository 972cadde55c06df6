package engine

import (
	. "github.com/chessduel/duel/pkg/common"
)

func (t *thread) searchRoot(ml []Move, depth int) int {
	const height = 0
	t.clearPV(height)
	var alpha, beta = -valueInfinity, valueInfinity
	var position = &t.stack[height].position
	var child = &t.stack[height+1].position
	var bestMove = MoveEmpty
	for i, move := range ml {
		position.MakeMove(move, child)
		t.incNodes()
		var score int
		if i > 0 {
			score = -t.alphaBeta(-(alpha + 1), -alpha, depth-1, height+1)
		}
		if i == 0 || score > alpha {
			score = -t.alphaBeta(-beta, -alpha, depth-1, height+1)
		}
		if score > alpha {
			alpha = score
			bestMove = move
			t.assignPV(height, move)
		}
	}
	t.engine.transTable.Update(position.Key, depth, valueToTT(alpha, height), boundExact, bestMove)
	return alpha
}

// main search method
func (t *thread) alphaBeta(alpha, beta, depth, height int) int {
	var position = &t.stack[height].position
	var isCheck = position.IsCheck()
	if isCheck {
		depth++
	}
	if depth <= 0 {
		return t.quiescence(alpha, beta, height)
	}
	t.clearPV(height)

	if height >= maxHeight {
		return evaluate(position)
	}
	if t.isRepeat(height) || isDraw(position) {
		return valueDraw
	}
	// mate distance pruning
	alpha = Max(alpha, lossIn(height))
	beta = Min(beta, winIn(height+1))
	if alpha >= beta {
		return alpha
	}

	var pvNode = beta != alpha+1
	var ttDepth, ttValue, ttBound, ttMove, ttHit = t.engine.transTable.Read(position.Key)
	if ttHit {
		ttValue = valueFromTT(ttValue, height)
		if ttDepth >= depth && !pvNode {
			if ttValue >= beta && (ttBound&boundLower) != 0 {
				return ttValue
			}
			if ttValue <= alpha && (ttBound&boundUpper) != 0 {
				return ttValue
			}
		}
	}

	if height+2 <= maxHeight {
		t.stack[height+2].killer1 = MoveEmpty
		t.stack[height+2].killer2 = MoveEmpty
	}

	var mi = moveIterator{
		position:  position,
		buffer:    t.stack[height].moveList[:],
		transMove: ttMove,
		killer1:   t.stack[height].killer1,
		killer2:   t.stack[height].killer2,
	}
	mi.Init()

	var movesSearched = 0
	var best = -valueInfinity
	var bestMove = MoveEmpty
	var oldAlpha = alpha

	for mi.Reset(); ; {
		var move = mi.Next()
		if move == MoveEmpty {
			break
		}
		if !t.MakeMove(move, height) {
			continue
		}
		movesSearched++

		var score = alpha + 1
		// PVS
		if movesSearched > 1 {
			score = -t.alphaBeta(-(alpha + 1), -alpha, depth-1, height+1)
		}
		if score > alpha {
			score = -t.alphaBeta(-beta, -alpha, depth-1, height+1)
		}

		if score > best {
			best = score
			bestMove = move
		}
		if score > alpha {
			alpha = score
			t.assignPV(height, move)
			if alpha >= beta {
				break
			}
		}
	}

	if movesSearched == 0 {
		if isCheck {
			return lossIn(height)
		}
		return valueDraw
	}

	if best >= beta && !isCaptureOrPromotion(bestMove) {
		t.updateKiller(bestMove, height)
	}

	var bound = 0
	if best > oldAlpha {
		bound |= boundLower
	}
	if best < beta {
		bound |= boundUpper
	}
	t.engine.transTable.Update(position.Key, depth, valueToTT(best, height), bound, bestMove)

	return best
}

func (t *thread) quiescence(alpha, beta, height int) int {
	t.clearPV(height)
	var position = &t.stack[height].position
	if isDraw(position) {
		return valueDraw
	}
	if height >= maxHeight {
		return evaluate(position)
	}

	var isCheck = position.IsCheck()
	var best = -valueInfinity
	if !isCheck {
		var eval = evaluate(position)
		best = eval
		if eval > alpha {
			alpha = eval
			if alpha >= beta {
				return alpha
			}
		}
	}
	var mi = moveIterator{
		position:  position,
		buffer:    t.stack[height].moveList[:],
		noisyOnly: !isCheck,
	}
	mi.Init()
	var hasLegalMove = false
	for mi.Reset(); ; {
		var move = mi.Next()
		if move == MoveEmpty {
			break
		}
		if !t.MakeMove(move, height) {
			continue
		}
		hasLegalMove = true
		var score = -t.quiescence(-beta, -alpha, height+1)
		best = Max(best, score)
		if score > alpha {
			alpha = score
			t.assignPV(height, move)
			if alpha >= beta {
				break
			}
		}
	}
	if isCheck && !hasLegalMove {
		return lossIn(height)
	}
	return best
}

func (t *thread) incNodes() {
	t.nodes++
	if t.nodes&255 == 0 {
		t.timeManager.OnNodesChanged(int(t.nodes))
		if t.timeManager.IsDone() {
			panic(errSearchTimeout)
		}
	}
}

func (t *thread) isRepeat(height int) bool {
	var p = &t.stack[height].position

	if p.Rule50 == 0 {
		return false
	}
	for i := height - 1; i >= 0; i-- {
		var temp = &t.stack[i].position
		if temp.Key == p.Key {
			return true
		}
		if temp.Rule50 == 0 {
			return false
		}
	}

	return t.historyKeys[p.Key] >= 2
}

func (t *thread) updateKiller(move Move, height int) {
	if t.stack[height].killer1 != move {
		t.stack[height].killer2 = t.stack[height].killer1
		t.stack[height].killer1 = move
	}
}

func (t *thread) MakeMove(move Move, height int) bool {
	var pos = &t.stack[height].position
	var child = &t.stack[height+1].position
	if !pos.MakeMove(move, child) {
		return false
	}
	t.incNodes()
	return true
}
