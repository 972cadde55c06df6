package common

import (
	"sort"
	"strings"
	"testing"

	"github.com/dylhunn/dragontoothmg"
)

func oracleMoves(fen string) []string {
	var board = dragontoothmg.ParseFen(fen)
	var result []string
	for _, mv := range board.GenerateLegalMoves() {
		result = append(result, strings.ToLower(mv.String()))
	}
	sort.Strings(result)
	return result
}

func ourMoves(p *Position) []string {
	var result []string
	for _, mv := range p.GenerateLegalMoves() {
		result = append(result, mv.String())
	}
	sort.Strings(result)
	return result
}

// Walks a few deterministic lines and compares the legal move set with an
// independent generator at every ply.
func TestLegalMovesAgainstOracle(t *testing.T) {
	var starts = []string{
		InitialPositionFen,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	for _, fen := range starts {
		var p = mustPosition(t, fen)
		for ply := 0; ply < 40; ply++ {
			var want = oracleMoves(p.String())
			var got = ourMoves(&p)
			if strings.Join(got, " ") != strings.Join(want, " ") {
				t.Fatalf("%v:\n got  %v\n want %v", p.String(), got, want)
			}
			var ml = p.GenerateLegalMoves()
			if len(ml) == 0 {
				break
			}
			var child Position
			p.MakeMove(ml[(ply*7+3)%len(ml)], &child)
			p = child
		}
	}
}
