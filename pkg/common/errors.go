package common

import (
	"errors"
	"fmt"
)

var (
	ErrIllegalMove = errors.New("illegal move")
	ErrParse       = errors.New("parse failed")
)

// IllegalMoveError reports a move that is not in the legal set of its origin
// square. The position it was tried against is left unchanged.
type IllegalMoveError struct {
	Move   Move
	FEN    string
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %v: %s (position %s)", e.Move, e.Reason, e.FEN)
}

func (e *IllegalMoveError) Is(target error) bool {
	return target == ErrIllegalMove
}

// FEN fields as named in ParseError.
const (
	FieldPlacement      = "placement"
	FieldActiveColor    = "active color"
	FieldCastling       = "castling"
	FieldEnPassant      = "en passant"
	FieldHalfmoveClock  = "halfmove clock"
	FieldFullmoveNumber = "fullmove number"
	FieldNumberOfFields = "fields"
)

type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("parse fen failed: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("parse fen failed: %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
