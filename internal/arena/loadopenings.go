package arena

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/chessduel/duel/pkg/common"
)

//go:embed openings.txt
var openingsTxt string

// DefaultOpenings returns the built-in opening list.
func DefaultOpenings() []string {
	var result []string
	var lines = strings.Split(openingsTxt, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !(line == "" || strings.HasPrefix(line, "//")) {
			result = append(result, line)
		}
	}
	return result
}

func loadOpenings(
	ctx context.Context,
	openings []string,
	gameInfos chan<- gameInfo,
) error {

	for i, opening := range openings {
		var fen, err = parseOpening(opening)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gameInfos <- gameInfo{opening: fen, engineAIsWhite: true, gameNumber: 1 + 2*i}:
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gameInfos <- gameInfo{opening: fen, engineAIsWhite: false, gameNumber: 1 + 2*i + 1}:
		}
	}

	return nil
}

// parseOpening returns the FEN of an opening given either as FEN or as a
// move list like "1. e4 e5 2. Nf3".
func parseOpening(opening string) (string, error) {
	opening = strings.TrimSpace(opening)
	if p, err := common.NewPositionFromFEN(opening); err == nil {
		return p.String(), nil
	}
	var g = chess.NewGame()
	for _, token := range strings.Fields(opening) {
		// strip move numbers, "1." and "1.e4" alike
		if i := strings.LastIndexByte(token, '.'); i >= 0 {
			token = token[i+1:]
		}
		if token == "" {
			continue
		}
		if err := g.MoveStr(token); err != nil {
			return "", fmt.Errorf("opening %q: move %v: %w", opening, token, err)
		}
	}
	var fen = g.Position().String()
	if _, err := common.NewPositionFromFEN(fen); err != nil {
		return "", fmt.Errorf("opening %q: %w", opening, err)
	}
	return fen, nil
}
