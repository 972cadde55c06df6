package game

import (
	"errors"
	"sync"
	"testing"

	"github.com/chessduel/duel/pkg/common"
)

func mustMove(t *testing.T, lan string) common.Move {
	t.Helper()
	var mv, err = common.ParseMoveLAN(lan)
	if err != nil {
		t.Fatal(err)
	}
	return mv
}

func playAll(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, lan := range moves {
		if _, err := g.ApplyMove(mustMove(t, lan)); err != nil {
			t.Fatalf("%v: %v", lan, err)
		}
	}
}

func TestApplyMove(t *testing.T) {
	var g = NewGame()
	var s, err = g.ApplyMove(mustMove(t, "e2e4"))
	if err != nil {
		t.Fatal(err)
	}
	if s.Ply != 1 || s.Position.SideToMove != common.Black {
		t.Fatalf("ply %d side %v", s.Ply, s.Position.SideToMove)
	}
	if g.FEN() != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1" {
		t.Fatalf("fen %v", g.FEN())
	}
	if s.LastMove.MovingPiece() != common.Pawn {
		t.Fatalf("last move %v not resolved", s.LastMove)
	}
	if len(g.Moves()) != 1 || len(g.Positions()) != 2 {
		t.Fatalf("history %v", g.Moves())
	}
}

func TestIllegalMoveLeavesGameUnchanged(t *testing.T) {
	var g = NewGame()
	var before = g.Snapshot()
	var _, err = g.ApplyMove(mustMove(t, "e2e5"))
	if !errors.Is(err, common.ErrIllegalMove) {
		t.Fatalf("got %v", err)
	}
	if g.Snapshot() != before {
		t.Fatal("snapshot replaced")
	}
}

func TestApplyMoveAtRejectsStale(t *testing.T) {
	var g = NewGame()
	var seq = g.Snapshot().Seq
	playAll(t, g, "e2e4")
	var _, err = g.ApplyMoveAt(seq, mustMove(t, "d2d4"))
	if !errors.Is(err, ErrStalePosition) {
		t.Fatalf("got %v", err)
	}
	if _, err = g.ApplyMoveAt(g.Snapshot().Seq, mustMove(t, "e7e5")); err != nil {
		t.Fatal(err)
	}
}

func TestResetInvalidatesSeq(t *testing.T) {
	var g = NewGame()
	var seq = g.Snapshot().Seq
	g.Reset()
	if g.Snapshot().Seq == seq {
		t.Fatal("reset kept seq")
	}
	var _, err = g.ApplyMoveAt(seq, mustMove(t, "e2e4"))
	if !errors.Is(err, ErrStalePosition) {
		t.Fatalf("got %v", err)
	}
}

func TestThreefoldRepetition(t *testing.T) {
	var g = NewGame()
	playAll(t, g, "g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1")
	if g.Classify().IsOver() {
		t.Fatalf("over too early: %v", g.Classify())
	}
	playAll(t, g, "f6g8")
	var got = g.Classify()
	if got.Kind != common.Draw || got.Reason != common.Repetition {
		t.Fatalf("got %v", got)
	}
	var _, err = g.ApplyMove(mustMove(t, "e2e4"))
	if !errors.Is(err, ErrGameOver) {
		t.Fatalf("move after draw: %v", err)
	}
}

func TestCheckmateEndsGame(t *testing.T) {
	var g = NewGame()
	playAll(t, g, "f2f3", "e7e5", "g2g4", "d8h4")
	var s = g.Snapshot()
	if !s.InCheck || s.Terminal.Kind != common.Checkmate || s.Terminal.Winner != common.Black {
		t.Fatalf("got %+v", s.Terminal)
	}
}

func TestLoadFEN(t *testing.T) {
	var g = NewGame()
	playAll(t, g, "e2e4")
	if err := g.LoadFEN("8/8/8/8/8/8/8/K6k w - - 0 1 extra"); !errors.Is(err, common.ErrParse) {
		t.Fatalf("got %v", err)
	}
	if g.Ply() != 1 {
		t.Fatal("failed load changed the game")
	}
	if err := g.LoadFEN("8/8/4k3/8/8/4K3/8/8 w - - 0 1"); err != nil {
		t.Fatal(err)
	}
	if g.Ply() != 0 || !g.Classify().IsOver() {
		t.Fatalf("got ply %d, %v", g.Ply(), g.Classify())
	}
}

func TestLoadPosition(t *testing.T) {
	var g = NewGame()
	var moves []common.Move
	for _, lan := range []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8"} {
		moves = append(moves, mustMove(t, lan))
	}
	if err := g.LoadPosition(common.InitialPositionFen, moves[:3]); err != nil {
		t.Fatal(err)
	}
	var s = g.Snapshot()
	if s.Ply != 3 || len(s.Moves) != 3 || s.LastMove.String() != "f3g1" || len(g.Positions()) != 4 {
		t.Fatalf("ply %d moves %v last %v", s.Ply, s.Moves, s.LastMove)
	}

	if err := g.LoadPosition(common.InitialPositionFen, moves); err != nil {
		t.Fatal(err)
	}
	if got := g.Classify(); got.Kind != common.Draw || got.Reason != common.Repetition {
		t.Fatalf("got %v", got)
	}

	var seq = g.Snapshot().Seq
	var bad = append(moves[:2:2], mustMove(t, "e2e5"))
	if err := g.LoadPosition(common.InitialPositionFen, bad); !errors.Is(err, common.ErrIllegalMove) {
		t.Fatalf("got %v", err)
	}
	if s := g.Snapshot(); s.Seq != seq || s.Ply != 8 || len(g.Moves()) != 8 {
		t.Fatalf("failed load changed the game: seq %d ply %d", s.Seq, s.Ply)
	}
	if err := g.LoadPosition("8/8/8/8 w - - 0 1", nil); !errors.Is(err, common.ErrParse) {
		t.Fatalf("got %v", err)
	}
}

func TestSnapshotMovesStayFixed(t *testing.T) {
	var g = NewGame()
	playAll(t, g, "e2e4")
	var before = g.Snapshot()
	playAll(t, g, "e7e5", "g1f3")
	if len(before.Moves) != 1 || before.Moves[0].String() != "e2e4" {
		t.Fatalf("got %v", before.Moves)
	}
	var moves = g.Moves()
	moves[0] = common.MoveEmpty
	if g.Snapshot().Moves[0].String() != "e2e4" {
		t.Fatal("Moves returned shared storage")
	}
}

func TestConcurrentReaders(t *testing.T) {
	var g = NewGame()
	var lines = []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5", "a7a6", "b5a4", "g8f6"}
	var wg sync.WaitGroup
	var done = make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				var s = g.Snapshot()
				if s.Position.SideToMove != common.Color(s.Ply%2) || len(s.Moves) != s.Ply {
					t.Errorf("torn snapshot at ply %d with %d moves", s.Ply, len(s.Moves))
					return
				}
			}
		}()
	}
	playAll(t, g, lines...)
	close(done)
	wg.Wait()
}
