package common

import (
	"fmt"
	"strings"
)

// Move packs origin, destination, moving and captured piece kinds, the
// promotion choice and special-move flags into one value.
type Move int32

const MoveEmpty = Move(0)

const (
	flagEnPassant = 1 << 21
	flagCastle    = 1 << 22
)

func makeMove(from, to int, movingPiece, capturedPiece PieceType) Move {
	return Move(from ^ (to << 6) ^ (int(movingPiece) << 12) ^ (int(capturedPiece) << 15))
}

func makePawnMove(from, to int, capturedPiece, promotion PieceType) Move {
	return makeMove(from, to, Pawn, capturedPiece) ^ Move(int(promotion)<<18)
}

// NewMove builds a move request from squares only. It carries no piece
// information and is resolved against the legal moves of a position.
func NewMove(from, to int, promotion PieceType) Move {
	return Move(from ^ (to << 6) ^ (int(promotion) << 18))
}

func (m Move) From() int {
	return int(m & 63)
}

func (m Move) To() int {
	return int((m >> 6) & 63)
}

func (m Move) MovingPiece() PieceType {
	return PieceType((m >> 12) & 7)
}

func (m Move) CapturedPiece() PieceType {
	return PieceType((m >> 15) & 7)
}

func (m Move) Promotion() PieceType {
	return PieceType((m >> 18) & 7)
}

func (m Move) IsEnPassant() bool {
	return m&flagEnPassant != 0
}

func (m Move) IsCastle() bool {
	return m&flagCastle != 0
}

func (m Move) IsCapture() bool {
	return m.CapturedPiece() != Empty
}

// CastleSide returns WhiteKingSide, WhiteQueenSide, BlackKingSide,
// BlackQueenSide or 0 for an ordinary move.
func (m Move) CastleSide() int {
	if !m.IsCastle() {
		return 0
	}
	var kingSide = File(m.To()) == FileG
	if Rank(m.From()) == Rank1 {
		return let(kingSide, WhiteKingSide, WhiteQueenSide)
	}
	return let(kingSide, BlackKingSide, BlackQueenSide)
}

func (m Move) String() string {
	if m == MoveEmpty {
		return "0000"
	}
	var sPromotion = ""
	if m.Promotion() != Empty {
		sPromotion = string("nbrq"[m.Promotion()-Knight])
	}
	return SquareName(m.From()) + SquareName(m.To()) + sPromotion
}

// ParseMoveLAN parses long algebraic notation (e2e4, e7e8q) into a move request.
func ParseMoveLAN(lan string) (Move, error) {
	lan = strings.ToLower(strings.TrimSpace(lan))
	if len(lan) != 4 && len(lan) != 5 {
		return MoveEmpty, fmt.Errorf("bad move %q", lan)
	}
	var from, err = ParseSquare(lan[0:2])
	if err != nil || from == SquareNone {
		return MoveEmpty, fmt.Errorf("bad move %q", lan)
	}
	to, err := ParseSquare(lan[2:4])
	if err != nil || to == SquareNone {
		return MoveEmpty, fmt.Errorf("bad move %q", lan)
	}
	var promotion = Empty
	if len(lan) == 5 {
		var i = strings.IndexByte("nbrq", lan[4])
		if i < 0 {
			return MoveEmpty, fmt.Errorf("bad promotion in move %q", lan)
		}
		promotion = Knight + PieceType(i)
	}
	return NewMove(from, to, promotion), nil
}

// matches reports whether the generated move m satisfies request.
// A promotion without an explicit piece means queen.
func (m Move) matches(request Move) bool {
	if m.From() != request.From() || m.To() != request.To() {
		return false
	}
	var promotion = request.Promotion()
	if m.Promotion() == Empty {
		return promotion == Empty
	}
	if promotion == Empty {
		promotion = Queen
	}
	return m.Promotion() == promotion
}

// ResolveMove finds the legal move that corresponds to request.
func (p *Position) ResolveMove(request Move) (Move, bool) {
	for _, mv := range p.LegalMovesFrom(request.From()) {
		if mv.matches(request) {
			return mv, true
		}
	}
	return MoveEmpty, false
}

// Apply is the single gate for movers: it accepts only moves from the legal
// set of the origin square and returns the resulting position.
func (p *Position) Apply(request Move) (Position, error) {
	var reason string
	var piece = p.PieceAt(request.From())
	switch {
	case piece.IsEmpty():
		reason = "no piece on " + SquareName(request.From())
	case piece.Color != p.SideToMove:
		reason = "not " + piece.Color.String() + " to move"
	}
	if reason == "" {
		if mv, ok := p.ResolveMove(request); ok {
			var child Position
			if !p.MakeMove(mv, &child) {
				panic(fmt.Errorf("legal move %v rejected in %v", mv, p.String()))
			}
			return child, nil
		}
		reason = "not a legal move"
	}
	return Position{}, &IllegalMoveError{Move: request, FEN: p.String(), Reason: reason}
}

func (p *Position) MakeMoveLAN(lan string) (Position, bool) {
	var request, err = ParseMoveLAN(lan)
	if err != nil {
		return Position{}, false
	}
	child, err := p.Apply(request)
	if err != nil {
		return Position{}, false
	}
	return child, true
}
