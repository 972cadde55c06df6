package common

type delta struct {
	file, rank int
}

var (
	knightDeltas = [...]delta{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingDeltas   = [...]delta{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	// rook directions first, then bishop directions
	rayDeltas = [...]delta{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {-1, 1}, {1, -1}, {-1, -1}}
)

const bishopDirs = 4

var (
	knightTargets [64][]int
	kingTargets   [64][]int
	rays          [64][8][]int
)

var promotions = [...]PieceType{Queen, Rook, Bishop, Knight}

func shift(sq int, d delta) int {
	var file = File(sq) + d.file
	var rank = Rank(sq) + d.rank
	if file < FileA || file > FileH || rank < Rank1 || rank > Rank8 {
		return SquareNone
	}
	return MakeSquare(file, rank)
}

func init() {
	for sq := 0; sq < 64; sq++ {
		for _, d := range knightDeltas {
			if to := shift(sq, d); to != SquareNone {
				knightTargets[sq] = append(knightTargets[sq], to)
			}
		}
		for _, d := range kingDeltas {
			if to := shift(sq, d); to != SquareNone {
				kingTargets[sq] = append(kingTargets[sq], to)
			}
		}
		for dir, d := range rayDeltas {
			for to := shift(sq, d); to != SquareNone; to = shift(to, d) {
				rays[sq][dir] = append(rays[sq][dir], to)
			}
		}
	}
}

// slidingDirs returns the ray directions of a sliding piece kind.
func slidingDirs(pt PieceType) (first, last int) {
	switch pt {
	case Bishop:
		return bishopDirs, len(rayDeltas)
	case Rook:
		return 0, bishopDirs
	case Queen:
		return 0, len(rayDeltas)
	}
	return 0, 0
}

// GenerateMoves appends the pseudo-legal moves of the side to move to
// buffer[:0]. Moves may leave the own king in check.
func (p *Position) GenerateMoves(buffer []Move) []Move {
	var ml = buffer[:0]
	for from, piece := range p.Board {
		if !piece.IsEmpty() && piece.Color == p.SideToMove {
			ml = p.generatePieceMoves(ml, from, piece)
		}
	}
	return ml
}

func (p *Position) generatePieceMoves(ml []Move, from int, piece Piece) []Move {
	switch piece.Type {
	case Pawn:
		return p.generatePawnMoves(ml, from, piece.Color)
	case Knight:
		return p.generateStepMoves(ml, from, piece, knightTargets[from])
	case Bishop, Rook, Queen:
		return p.generateSlidingMoves(ml, from, piece)
	case King:
		ml = p.generateStepMoves(ml, from, piece, kingTargets[from])
		return p.generateCastles(ml, from, piece.Color)
	}
	return ml
}

func (p *Position) generateStepMoves(ml []Move, from int, piece Piece, targets []int) []Move {
	for _, to := range targets {
		var target = p.Board[to]
		if target.IsEmpty() || target.Color != piece.Color {
			ml = append(ml, makeMove(from, to, piece.Type, target.Type))
		}
	}
	return ml
}

func (p *Position) generateSlidingMoves(ml []Move, from int, piece Piece) []Move {
	var first, last = slidingDirs(piece.Type)
	for dir := first; dir < last; dir++ {
		for _, to := range rays[from][dir] {
			var target = p.Board[to]
			if target.IsEmpty() {
				ml = append(ml, makeMove(from, to, piece.Type, Empty))
				continue
			}
			if target.Color != piece.Color {
				ml = append(ml, makeMove(from, to, piece.Type, target.Type))
			}
			break
		}
	}
	return ml
}

func addPawnMove(ml []Move, from, to int, captured PieceType) []Move {
	if Rank(to) == Rank8 || Rank(to) == Rank1 {
		for _, promotion := range promotions {
			ml = append(ml, makePawnMove(from, to, captured, promotion))
		}
		return ml
	}
	return append(ml, makePawnMove(from, to, captured, Empty))
}

func (p *Position) generatePawnMoves(ml []Move, from int, side Color) []Move {
	var forward = let(side == White, 8, -8)
	var startRank = let(side == White, Rank2, Rank7)

	var to = from + forward
	if p.Board[to].IsEmpty() {
		ml = addPawnMove(ml, from, to, Empty)
		if Rank(from) == startRank && p.Board[to+forward].IsEmpty() {
			ml = append(ml, makePawnMove(from, to+forward, Empty, Empty))
		}
	}

	for _, df := range [...]int{-1, 1} {
		var file = File(from) + df
		if file < FileA || file > FileH {
			continue
		}
		to = MakeSquare(file, Rank(from+forward))
		if to == p.EpSquare {
			ml = append(ml, makePawnMove(from, to, Pawn, Empty)|flagEnPassant)
			continue
		}
		var target = p.Board[to]
		if !target.IsEmpty() && target.Color != side {
			ml = addPawnMove(ml, from, to, target.Type)
		}
	}
	return ml
}

// generateCastles requires the king and rook on their home squares, the
// squares between them empty, and the king's start, transit and destination
// squares not attacked.
func (p *Position) generateCastles(ml []Move, from int, side Color) []Move {
	var rank = let(side == White, Rank1, Rank8)
	if from != MakeSquare(FileE, rank) {
		return ml
	}
	var kingSide = let(side == White, WhiteKingSide, BlackKingSide)
	var queenSide = let(side == White, WhiteQueenSide, BlackQueenSide)
	var rook = MakePiece(Rook, side)
	var enemy = side.Opposite()
	var sq = func(file int) int { return MakeSquare(file, rank) }

	if p.CastleRights&(kingSide|queenSide) == 0 || p.isAttackedBySide(from, enemy) {
		return ml
	}

	if p.CastleRights&kingSide != 0 &&
		p.Board[sq(FileH)] == rook &&
		p.Board[sq(FileF)].IsEmpty() &&
		p.Board[sq(FileG)].IsEmpty() &&
		!p.isAttackedBySide(sq(FileF), enemy) &&
		!p.isAttackedBySide(sq(FileG), enemy) {
		ml = append(ml, makeMove(from, sq(FileG), King, Empty)|flagCastle)
	}
	if p.CastleRights&queenSide != 0 &&
		p.Board[sq(FileA)] == rook &&
		p.Board[sq(FileB)].IsEmpty() &&
		p.Board[sq(FileC)].IsEmpty() &&
		p.Board[sq(FileD)].IsEmpty() &&
		!p.isAttackedBySide(sq(FileD), enemy) &&
		!p.isAttackedBySide(sq(FileC), enemy) {
		ml = append(ml, makeMove(from, sq(FileC), King, Empty)|flagCastle)
	}
	return ml
}

// LegalMovesFrom returns the legal moves of the piece on sq. It is empty when
// the square is empty or holds a piece of the side not to move.
func (p *Position) LegalMovesFrom(sq int) []Move {
	if !IsValidSquare(sq) {
		return nil
	}
	var piece = p.Board[sq]
	if piece.IsEmpty() || piece.Color != p.SideToMove {
		return nil
	}
	var buffer [32]Move
	var child Position
	var ml []Move
	for _, mv := range p.generatePieceMoves(buffer[:0], sq, piece) {
		if p.MakeMove(mv, &child) {
			ml = append(ml, mv)
		}
	}
	return ml
}

// PseudoLegalMovesFrom is LegalMovesFrom without the king safety filter.
func (p *Position) PseudoLegalMovesFrom(sq int) []Move {
	if !IsValidSquare(sq) {
		return nil
	}
	var piece = p.Board[sq]
	if piece.IsEmpty() || piece.Color != p.SideToMove {
		return nil
	}
	return p.generatePieceMoves(nil, sq, piece)
}

func (p *Position) GenerateLegalMoves() (ml []Move) {
	var buffer [MaxMoves]Move
	var child Position
	for _, m := range p.GenerateMoves(buffer[:]) {
		if p.MakeMove(m, &child) {
			ml = append(ml, m)
		}
	}
	return ml
}

func (p *Position) HasLegalMove() bool {
	var buffer [MaxMoves]Move
	var child Position
	for _, m := range p.GenerateMoves(buffer[:]) {
		if p.MakeMove(m, &child) {
			return true
		}
	}
	return false
}
