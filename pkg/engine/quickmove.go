package engine

import (
	. "github.com/chessduel/duel/pkg/common"
)

// QuickMove picks a move without searching: the legal capture that wins the
// most material, otherwise the first legal move. It returns MoveEmpty when
// there is no legal move.
func QuickMove(p Position) Move {
	var bestMove = MoveEmpty
	var bestGain = 0
	for _, move := range p.GenerateLegalMoves() {
		if bestMove == MoveEmpty {
			bestMove = move
		}
		var gain = move.CapturedPiece().Value() + move.Promotion().Value()
		if gain > bestGain {
			bestGain = gain
			bestMove = move
		}
	}
	return bestMove
}
