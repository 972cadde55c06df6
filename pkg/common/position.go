package common

import (
	"fmt"
	"math/rand"
)

// Position is a value: copying it yields an independent snapshot.
type Position struct {
	Board        [64]Piece
	SideToMove   Color
	CastleRights int
	EpSquare     int
	Rule50       int
	MoveNumber   int
	Key          uint64
	kings        [2]int
}

var castleMask [64]int

func NewInitialPosition() Position {
	var p, err = NewPositionFromFEN(InitialPositionFen)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Position) PieceAt(sq int) Piece {
	return p.Board[sq]
}

func (p *Position) WhatPiece(sq int) PieceType {
	return p.Board[sq].Type
}

func (p *Position) KingSquare(c Color) int {
	return p.kings[c]
}

func (p *Position) IsCheck() bool {
	return p.IsInCheck(p.SideToMove)
}

// IsInCheck reports whether any opposing piece attacks the king of color c.
func (p *Position) IsInCheck(c Color) bool {
	return p.isAttackedBySide(p.kings[c], c.Opposite())
}

// Material is the signed material balance, positive when white is ahead.
func (p *Position) Material() int {
	var result = 0
	for _, piece := range p.Board {
		result += piece.Value()
	}
	return result
}

func (p *Position) setPiece(sq int, piece Piece) {
	var old = p.Board[sq]
	if !old.IsEmpty() {
		p.Key ^= PieceSquareKey(old, sq)
	}
	p.Board[sq] = piece
	if !piece.IsEmpty() {
		p.Key ^= PieceSquareKey(piece, sq)
		if piece.Type == King {
			p.kings[piece.Color] = sq
		}
	}
}

func (p *Position) movePiece(from, to int) {
	var piece = p.Board[from]
	p.setPiece(from, NoPiece)
	p.setPiece(to, piece)
}

// MakeMove writes the position after move into result and reports whether
// the mover's king is safe there. result is undefined when it returns false.
func (src *Position) MakeMove(move Move, result *Position) bool {
	var from = move.From()
	var to = move.To()
	var us = src.SideToMove
	var movingPiece = src.Board[from]

	*result = *src

	result.SideToMove = us.Opposite()
	result.Key ^= sideKey

	result.CastleRights = src.CastleRights & castleMask[from] & castleMask[to]
	result.Key ^= castlingKey[result.CastleRights^src.CastleRights]

	if movingPiece.Type == Pawn || move.IsCapture() {
		result.Rule50 = 0
	} else {
		result.Rule50 = src.Rule50 + 1
	}
	if us == Black {
		result.MoveNumber = src.MoveNumber + 1
	}

	result.EpSquare = SquareNone
	if src.EpSquare != SquareNone {
		result.Key ^= enpassantKey[File(src.EpSquare)]
	}

	if move.IsEnPassant() {
		result.setPiece(MakeSquare(File(to), Rank(from)), NoPiece)
	}

	result.movePiece(from, to)

	switch movingPiece.Type {
	case Pawn:
		if move.Promotion() != Empty {
			result.setPiece(to, MakePiece(move.Promotion(), us))
		}
		if to-from == 16 || from-to == 16 {
			result.EpSquare = (from + to) / 2
			result.Key ^= enpassantKey[File(result.EpSquare)]
		}
	case King:
		if move.IsCastle() {
			var rank = Rank(from)
			if File(to) == FileG {
				result.movePiece(MakeSquare(FileH, rank), MakeSquare(FileF, rank))
			} else {
				result.movePiece(MakeSquare(FileA, rank), MakeSquare(FileD, rank))
			}
		}
	}

	return !result.IsInCheck(us)
}

func (p *Position) isAttackedBySide(sq int, side Color) bool {
	var rank = Rank(sq)
	var file = File(sq)
	var pawnRank = let(side == White, rank-1, rank+1)
	if pawnRank >= Rank1 && pawnRank <= Rank8 {
		var pawn = MakePiece(Pawn, side)
		if file > FileA && p.Board[MakeSquare(file-1, pawnRank)] == pawn {
			return true
		}
		if file < FileH && p.Board[MakeSquare(file+1, pawnRank)] == pawn {
			return true
		}
	}
	var knight = MakePiece(Knight, side)
	for _, from := range knightTargets[sq] {
		if p.Board[from] == knight {
			return true
		}
	}
	var king = MakePiece(King, side)
	for _, from := range kingTargets[sq] {
		if p.Board[from] == king {
			return true
		}
	}
	for dir := range rays[sq] {
		for _, from := range rays[sq][dir] {
			var piece = p.Board[from]
			if piece.IsEmpty() {
				continue
			}
			if piece.Color == side &&
				(piece.Type == Queen ||
					piece.Type == Rook && dir < bishopDirs ||
					piece.Type == Bishop && dir >= bishopDirs) {
				return true
			}
			break
		}
	}
	return false
}

// IsRepetition compares everything that identifies a position for the
// repetition rule.
func (p *Position) IsRepetition(other *Position) bool {
	return p.Board == other.Board &&
		p.SideToMove == other.SideToMove &&
		p.CastleRights == other.CastleRights &&
		p.EpSquare == other.EpSquare
}

// Classify determines mate, stalemate and the draws that need no history.
func (p *Position) Classify() TerminalState {
	if !p.HasLegalMove() {
		if p.IsCheck() {
			return TerminalState{Kind: Checkmate, Winner: p.SideToMove.Opposite()}
		}
		return TerminalState{Kind: Stalemate}
	}
	if p.Rule50 >= 100 {
		return TerminalState{Kind: Draw, Reason: FiftyMoveRule}
	}
	if p.IsInsufficientMaterial() {
		return TerminalState{Kind: Draw, Reason: InsufficientMaterial}
	}
	return TerminalState{}
}

// IsInsufficientMaterial is true when neither side has pawns, rooks or
// queens and each side has at most one minor piece.
func (p *Position) IsInsufficientMaterial() bool {
	var minors [2]int
	for _, piece := range p.Board {
		switch {
		case piece.IsEmpty(), piece.Type == King:
		case piece.Type.isMinor():
			minors[piece.Color]++
		default:
			return false
		}
	}
	return minors[White] <= 1 && minors[Black] <= 1
}

// validatePlacement checks what the board alone must satisfy.
func (p *Position) validatePlacement() *ParseError {
	var kings [2]int
	for sq, piece := range p.Board {
		if piece.Type == King {
			kings[piece.Color]++
		}
		if piece.Type == Pawn && (Rank(sq) == Rank1 || Rank(sq) == Rank8) {
			return &ParseError{Field: FieldPlacement, Value: SquareName(sq), Reason: "pawn on first or last rank"}
		}
	}
	if kings[White] != 1 || kings[Black] != 1 {
		return &ParseError{Field: FieldPlacement, Reason: fmt.Sprintf("want one king per side, got %d white and %d black", kings[White], kings[Black])}
	}
	return nil
}

func (p *Position) validate() *ParseError {
	if p.IsInCheck(p.SideToMove.Opposite()) {
		return &ParseError{Field: FieldActiveColor, Value: p.SideToMove.String(), Reason: "side not to move is in check"}
	}
	return nil
}

var (
	sideKey        uint64
	enpassantKey   [8]uint64
	castlingKey    [16]uint64
	pieceSquareKey [2 * 7 * 64]uint64
)

func PieceSquareKey(piece Piece, square int) uint64 {
	return pieceSquareKey[(int(piece.Color)*7+int(piece.Type))*64+square]
}

func (p *Position) computeKey() uint64 {
	var result = uint64(0)
	if p.SideToMove == White {
		result ^= sideKey
	}
	result ^= castlingKey[p.CastleRights]
	if p.EpSquare != SquareNone {
		result ^= enpassantKey[File(p.EpSquare)]
	}
	for sq, piece := range p.Board {
		if !piece.IsEmpty() {
			result ^= PieceSquareKey(piece, sq)
		}
	}
	return result
}

func initKeys() {
	var r = rand.New(rand.NewSource(0))
	sideKey = r.Uint64()
	for i := range enpassantKey {
		enpassantKey[i] = r.Uint64()
	}
	for i := range pieceSquareKey {
		pieceSquareKey[i] = r.Uint64()
	}

	var castle [4]uint64
	for i := range castle {
		castle[i] = r.Uint64()
	}

	for i := range castlingKey {
		for j := 0; j < 4; j++ {
			if (i & (1 << uint(j))) != 0 {
				castlingKey[i] ^= castle[j]
			}
		}
	}
}

func init() {
	initKeys()
	for i := range castleMask {
		castleMask[i] = AllCastleRights
	}
	castleMask[SquareA1] &^= WhiteQueenSide
	castleMask[SquareE1] &^= WhiteQueenSide | WhiteKingSide
	castleMask[SquareH1] &^= WhiteKingSide
	castleMask[SquareA8] &^= BlackQueenSide
	castleMask[SquareE8] &^= BlackQueenSide | BlackKingSide
	castleMask[SquareH8] &^= BlackKingSide
}
