package common

import (
	"strings"
	"unicode"
)

func Min(l, r int) int {
	if l < r {
		return l
	}
	return r
}

func Max(l, r int) int {
	if l > r {
		return l
	}
	return r
}

func let(ok bool, yes, no int) int {
	if ok {
		return yes
	}
	return no
}

func parsePiece(ch rune) (Piece, bool) {
	var color = Black
	if unicode.IsUpper(ch) {
		color = White
	}
	var i = strings.IndexRune("pnbrqk", unicode.ToLower(ch))
	if i < 0 {
		return NoPiece, false
	}
	return Piece{Type: Pawn + PieceType(i), Color: color}, true
}

func pieceToChar(piece Piece) byte {
	var ch = "pnbrqk"[piece.Type-Pawn]
	if piece.Color == White {
		ch -= 'a' - 'A'
	}
	return ch
}
