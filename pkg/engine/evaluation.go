package engine

import (
	. "github.com/chessduel/duel/pkg/common"
)

// evaluate returns material plus a small placement bonus, from the point of
// view of the side to move.
func evaluate(p *Position) int {
	var score = 0
	for sq, piece := range p.Board {
		if piece.IsEmpty() {
			continue
		}
		var v = piece.Type.Value() + placement(piece, sq)
		if piece.Color == White {
			score += v
		} else {
			score -= v
		}
	}
	if p.SideToMove == Black {
		return -score
	}
	return score
}

func placement(piece Piece, sq int) int {
	var file = File(sq)
	var rank = Rank(sq)
	if piece.Color == Black {
		rank = Rank8 - rank
	}
	// 0 on the rim, 3 on the four centre squares
	var centrality = 3 - Max(abs(2*file-7), abs(2*rank-7))/2
	switch piece.Type {
	case Pawn:
		return 6*(rank-Rank2) + 4*Min(centrality, 2)
	case Knight:
		return 12 * centrality
	case Bishop, Queen:
		return 5 * centrality
	case King:
		if rank == Rank1 && file != FileD && file != FileE {
			return 20
		}
	}
	return 0
}
