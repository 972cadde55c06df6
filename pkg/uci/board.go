package uci

import (
	"fmt"
	"io"
	"strings"

	"github.com/chessduel/duel/pkg/common"
)

const (
	whiteKing   = "♔"
	whiteQueen  = "♕"
	whiteRook   = "♖"
	whiteBishop = "♗"
	whiteKnight = "♘"
	whitePawn   = "♙"
	blackKing   = "♚"
	blackQueen  = "♛"
	blackRook   = "♜"
	blackBishop = "♝"
	blackKnight = "♞"
	blackPawn   = "♟"
)

var chessSymbols = [2][7]string{
	{".", whitePawn, whiteKnight, whiteBishop, whiteRook, whiteQueen, whiteKing},
	{".", blackPawn, blackKnight, blackBishop, blackRook, blackQueen, blackKing},
}

// WriteBoard prints the position rank 8 first, with file and rank labels.
func WriteBoard(w io.Writer, p *common.Position) {
	var sb strings.Builder
	for rank := common.Rank8; rank >= common.Rank1; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := common.FileA; file <= common.FileH; file++ {
			var piece = p.PieceAt(common.MakeSquare(file, rank))
			if piece.IsEmpty() {
				sb.WriteString(chessSymbols[0][0])
			} else {
				sb.WriteString(chessSymbols[piece.Color][piece.Type])
			}
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("  a b c d e f g h\n")
	io.WriteString(w, sb.String())
}
