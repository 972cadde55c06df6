package common

type Piece struct {
	Type  PieceType
	Color Color
}

var NoPiece = Piece{}

var pieceValues = [...]int{Empty: 0, Pawn: 100, Knight: 320, Bishop: 330, Rook: 500, Queen: 900, King: 0}

func MakePiece(pt PieceType, color Color) Piece {
	return Piece{Type: pt, Color: color}
}

func (p Piece) IsEmpty() bool {
	return p.Type == Empty
}

// Value is the signed material value: positive for white, negative for black.
func (p Piece) Value() int {
	var v = pieceValues[p.Type]
	if p.Color == Black {
		return -v
	}
	return v
}

func (pt PieceType) Value() int {
	return pieceValues[pt]
}

func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "pawn"
	case Knight:
		return "knight"
	case Bishop:
		return "bishop"
	case Rook:
		return "rook"
	case Queen:
		return "queen"
	case King:
		return "king"
	}
	return "empty"
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "."
	}
	return string(pieceToChar(p))
}

func (pt PieceType) isMinor() bool {
	return pt == Knight || pt == Bishop
}
