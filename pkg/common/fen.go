package common

import (
	"strconv"
	"strings"
)

// NewPositionFromFEN parses the six-field FEN grammar. Errors are *ParseError
// naming the offending field.
func NewPositionFromFEN(fen string) (Position, error) {
	var tokens = strings.Fields(fen)
	if len(tokens) != 6 {
		return Position{}, &ParseError{Field: FieldNumberOfFields, Value: fen,
			Reason: "want 6 space separated fields, got " + strconv.Itoa(len(tokens))}
	}

	var p = Position{EpSquare: SquareNone}

	if err := parsePlacement(&p, tokens[0]); err != nil {
		return Position{}, err
	}
	if err := p.validatePlacement(); err != nil {
		return Position{}, err
	}

	switch tokens[1] {
	case "w":
		p.SideToMove = White
	case "b":
		p.SideToMove = Black
	default:
		return Position{}, &ParseError{Field: FieldActiveColor, Value: tokens[1], Reason: "want w or b"}
	}

	if err := parseCastling(&p, tokens[2]); err != nil {
		return Position{}, err
	}

	if err := parseEnPassant(&p, tokens[3]); err != nil {
		return Position{}, err
	}

	var rule50, err = parseClock(tokens[4])
	if err != nil || rule50 < 0 {
		return Position{}, &ParseError{Field: FieldHalfmoveClock, Value: tokens[4], Reason: "want non-negative integer"}
	}
	p.Rule50 = rule50

	moveNumber, err := parseClock(tokens[5])
	if err != nil || moveNumber < 1 {
		return Position{}, &ParseError{Field: FieldFullmoveNumber, Value: tokens[5], Reason: "want positive integer"}
	}
	p.MoveNumber = moveNumber

	if err := p.validate(); err != nil {
		return Position{}, err
	}
	p.Key = p.computeKey()
	return p, nil
}

func parsePlacement(p *Position, s string) error {
	var ranks = strings.Split(s, "/")
	if len(ranks) != 8 {
		return &ParseError{Field: FieldPlacement, Value: s, Reason: "want 8 ranks"}
	}
	for i, rankText := range ranks {
		var rank = Rank8 - i
		var file = FileA
		var prevDigit bool
		for _, ch := range rankText {
			if file > FileH {
				return &ParseError{Field: FieldPlacement, Value: s,
					Reason: "rank " + strconv.Itoa(rank+1) + " describes more than 8 squares"}
			}
			if ch >= '1' && ch <= '8' {
				if prevDigit {
					return &ParseError{Field: FieldPlacement, Value: s,
						Reason: "rank " + strconv.Itoa(rank+1) + " has consecutive digits"}
				}
				prevDigit = true
				file += int(ch - '0')
				continue
			}
			prevDigit = false
			if piece, ok := parsePiece(ch); ok {
				p.Board[MakeSquare(file, rank)] = piece
				if piece.Type == King {
					p.kings[piece.Color] = MakeSquare(file, rank)
				}
				file++
			} else {
				return &ParseError{Field: FieldPlacement, Value: s, Reason: "unexpected character " + strconv.QuoteRune(ch)}
			}
		}
		if file != 8 {
			return &ParseError{Field: FieldPlacement, Value: s,
				Reason: "rank " + strconv.Itoa(rank+1) + " does not describe 8 squares"}
		}
	}
	return nil
}

// parseClock accepts plain decimal digits only, no sign.
func parseClock(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}

func parseCastling(p *Position, s string) error {
	if s == "-" {
		return nil
	}
	const order = "KQkq"
	var last = -1
	for _, ch := range s {
		var i = strings.IndexRune(order, ch)
		if i <= last {
			return &ParseError{Field: FieldCastling, Value: s, Reason: "want - or a subset of KQkq in that order"}
		}
		last = i
		p.CastleRights |= 1 << uint(i)
	}
	for _, cr := range [...]struct {
		right      int
		king, rook int
		color      Color
	}{
		{WhiteKingSide, SquareE1, SquareH1, White},
		{WhiteQueenSide, SquareE1, SquareA1, White},
		{BlackKingSide, SquareE8, SquareH8, Black},
		{BlackQueenSide, SquareE8, SquareA8, Black},
	} {
		if p.CastleRights&cr.right != 0 &&
			(p.Board[cr.king] != MakePiece(King, cr.color) || p.Board[cr.rook] != MakePiece(Rook, cr.color)) {
			return &ParseError{Field: FieldCastling, Value: s, Reason: "right without king and rook on home squares"}
		}
	}
	return nil
}

func parseEnPassant(p *Position, s string) error {
	var sq, err = ParseSquare(s)
	if err != nil {
		return &ParseError{Field: FieldEnPassant, Value: s, Reason: err.Error()}
	}
	if sq == SquareNone {
		return nil
	}
	// the pawn that just advanced two squares stands in front of the target
	var wantRank, pawnSq, pawn = Rank3, sq + 8, MakePiece(Pawn, White)
	if p.SideToMove == White {
		wantRank, pawnSq, pawn = Rank6, sq-8, MakePiece(Pawn, Black)
	}
	if Rank(sq) != wantRank || p.Board[pawnSq] != pawn || !p.Board[sq].IsEmpty() {
		return &ParseError{Field: FieldEnPassant, Value: s, Reason: "no pawn advanced two squares past this square"}
	}
	p.EpSquare = sq
	return nil
}

// String returns the FEN of the position.
func (p *Position) String() string {
	var sb strings.Builder

	for rank := Rank8; rank >= Rank1; rank-- {
		var emptyCount = 0
		for file := FileA; file <= FileH; file++ {
			var piece = p.Board[MakeSquare(file, rank)]
			if piece.IsEmpty() {
				emptyCount++
				continue
			}
			if emptyCount != 0 {
				sb.WriteString(strconv.Itoa(emptyCount))
				emptyCount = 0
			}
			sb.WriteByte(pieceToChar(piece))
		}
		if emptyCount != 0 {
			sb.WriteString(strconv.Itoa(emptyCount))
		}
		if rank != Rank1 {
			sb.WriteString("/")
		}
	}
	sb.WriteString(" ")

	if p.SideToMove == White {
		sb.WriteString("w")
	} else {
		sb.WriteString("b")
	}
	sb.WriteString(" ")

	if p.CastleRights == 0 {
		sb.WriteString("-")
	} else {
		if (p.CastleRights & WhiteKingSide) != 0 {
			sb.WriteString("K")
		}
		if (p.CastleRights & WhiteQueenSide) != 0 {
			sb.WriteString("Q")
		}
		if (p.CastleRights & BlackKingSide) != 0 {
			sb.WriteString("k")
		}
		if (p.CastleRights & BlackQueenSide) != 0 {
			sb.WriteString("q")
		}
	}
	sb.WriteString(" ")

	sb.WriteString(SquareName(p.EpSquare))
	sb.WriteString(" ")

	sb.WriteString(strconv.Itoa(p.Rule50))
	sb.WriteString(" ")

	sb.WriteString(strconv.Itoa(p.MoveNumber))

	return sb.String()
}

func (p *Position) FEN() string {
	return p.String()
}
