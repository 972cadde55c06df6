package uci

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/engine"
	"github.com/chessduel/duel/pkg/game"
	"github.com/chessduel/duel/pkg/scheduler"
)

func newProtocol(out io.Writer) *Protocol {
	var sched = scheduler.New(game.NewGame(), scheduler.Config{}, zerolog.Nop())
	return New("duel", "test", sched, engine.New(engine.NewOptions()), out)
}

func TestCommands(t *testing.T) {
	var input = strings.Join([]string{
		"uci",
		"isready",
		"position startpos moves e2e4 e7e5",
		"fen",
		"e2e5",
		"g1f3",
		"moves b8",
		"mode",
		"status",
		"frobnicate",
		"new",
		"fen",
		"quit",
		"fen",
	}, "\n")
	var out bytes.Buffer
	var protocol = newProtocol(&out)
	if err := protocol.Run(context.Background(), strings.NewReader(input), zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	var lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	var want = []string{
		"id name duel test",
		"uciok",
		"readyok",
		"rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq e6 0 2",
		"error illegal move e2e5",
		"played g1f3",
		"moves b8c6 b8a6",
		"mode hvh",
		"status ply 3 side black check false result * white idle black idle",
		"error command not found",
		common.InitialPositionFen,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%v", len(lines), out.String())
	}
	for i := range want {
		if !strings.HasPrefix(lines[i], want[i]) {
			t.Errorf("line %d: got %q, want prefix %q", i, lines[i], want[i])
		}
	}
}

func TestPositionKeepsHistory(t *testing.T) {
	var out bytes.Buffer
	var protocol = newProtocol(&out)
	var input = strings.Join([]string{
		"position startpos moves g1f3 g8f6 f3g1 f6g8 g1f3 g8f6 f3g1 f6g8",
		"status",
		"position startpos moves e2e4 e7e5 e2e5",
		"status",
	}, "\n")
	if err := protocol.Run(context.Background(), strings.NewReader(input), zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	var got = out.String()
	for _, s := range []string{
		"status ply 8 side white check false result 1/2-1/2",
		"result 1/2-1/2 {",
		"error move 3 e2e5: ",
	} {
		if !strings.Contains(got, s) {
			t.Errorf("missing %q in:\n%v", s, got)
		}
	}
	if strings.Count(got, "status ply 8 ") != 2 {
		t.Errorf("failed position command changed the game:\n%v", got)
	}
}

func TestModeAndFenErrors(t *testing.T) {
	var out bytes.Buffer
	var protocol = newProtocol(&out)
	var input = "mode eve\nmode\nfen 8/8/8/8 w - - 0 1\nmode xyz\n"
	if err := protocol.Run(context.Background(), strings.NewReader(input), zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	var got = out.String()
	for _, s := range []string{"mode eve", "error parse fen failed", "error unknown mode"} {
		if !strings.Contains(got, s) {
			t.Errorf("output lacks %q:\n%v", s, got)
		}
	}
	if protocol.scheduler.Mode() != scheduler.AgentVsAgent {
		t.Errorf("mode %v", protocol.scheduler.Mode())
	}
}

func TestGoPrintsBestMove(t *testing.T) {
	var inReader, inWriter = io.Pipe()
	var outReader, outWriter = io.Pipe()
	var protocol = newProtocol(outWriter)
	var done = make(chan error, 1)
	go func() { done <- protocol.Run(context.Background(), inReader, zerolog.Nop()) }()

	go io.WriteString(inWriter, "position fen 6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1\ngo depth 3\n")

	var scanner = bufio.NewScanner(outReader)
	var bestmove string
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "bestmove ") {
			bestmove = strings.TrimPrefix(scanner.Text(), "bestmove ")
			break
		}
	}
	if bestmove != "a1a8" {
		t.Fatalf("bestmove %q", bestmove)
	}

	go io.Copy(io.Discard, outReader)
	inWriter.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestWriteBoard(t *testing.T) {
	var p = common.NewInitialPosition()
	var sb strings.Builder
	WriteBoard(&sb, &p)
	var lines = strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 9 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "8 ♜ ♞ ♝ ♛ ♚ ♝ ♞ ♜ " {
		t.Errorf("rank 8: %q", lines[0])
	}
	if lines[4] != "4 . . . . . . . . " {
		t.Errorf("rank 4: %q", lines[4])
	}
}
