package common

type Color int8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType is the closed set of piece kinds. Movement patterns are keyed by it.
type PieceType int8

const (
	Empty PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

const (
	WhiteKingSide = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide
)

const (
	AllCastleRights = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

const InitialPositionFen = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

const (
	MaxMoves = 256
)

type TerminalKind int8

const (
	NotTerminal TerminalKind = iota
	Checkmate
	Stalemate
	Draw
)

type DrawReason int8

const (
	NoDraw DrawReason = iota
	FiftyMoveRule
	InsufficientMaterial
	Repetition
)

func (r DrawReason) String() string {
	switch r {
	case FiftyMoveRule:
		return "fifty-move rule"
	case InsufficientMaterial:
		return "insufficient material"
	case Repetition:
		return "threefold repetition"
	}
	return "none"
}

// TerminalState is the classification of a position. Winner is meaningful
// only for Checkmate.
type TerminalState struct {
	Kind   TerminalKind
	Winner Color
	Reason DrawReason
}

func (t TerminalState) IsOver() bool {
	return t.Kind != NotTerminal
}

func (t TerminalState) String() string {
	switch t.Kind {
	case Checkmate:
		return "checkmate, " + t.Winner.String() + " wins"
	case Stalemate:
		return "stalemate"
	case Draw:
		return "draw by " + t.Reason.String()
	}
	return "in progress"
}

// Result gives the PGN style score for a finished game.
func (t TerminalState) Result() string {
	switch t.Kind {
	case Checkmate:
		if t.Winner == White {
			return "1-0"
		}
		return "0-1"
	case Stalemate, Draw:
		return "1/2-1/2"
	}
	return "*"
}
