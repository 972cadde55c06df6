package uciagent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/common"
)

type fakeProcess struct {
	mu      sync.Mutex
	cmds    []string
	best    string
	block   chan struct{}
	results uci.SearchResults
	closed  bool
}

func (f *fakeProcess) Run(cmds ...uci.Cmd) error {
	f.mu.Lock()
	for _, cmd := range cmds {
		f.cmds = append(f.cmds, cmd.String())
		if pos, ok := cmd.(uci.CmdPosition); ok && f.best != "" {
			var mv, err = chess.UCINotation{}.Decode(pos.Position, f.best)
			if err != nil {
				f.mu.Unlock()
				return err
			}
			f.results = uci.SearchResults{BestMove: mv}
		}
	}
	var block = f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return nil
}

func (f *fakeProcess) SearchResults() uci.SearchResults {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results
}

func (f *fakeProcess) Close() error {
	f.closed = true
	return nil
}

func TestHandshake(t *testing.T) {
	var fake = &fakeProcess{}
	var _, err = newAgent(Config{Path: "fake", SkillLevel: 10}, fake, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	var want = []string{"uci", "isready", "setoption name Skill Level value 10", "ucinewgame"}
	if len(fake.cmds) != len(want) {
		t.Fatalf("got %q", fake.cmds)
	}
	for i := range want {
		if fake.cmds[i] != want[i] {
			t.Errorf("cmd %d: got %q, want %q", i, fake.cmds[i], want[i])
		}
	}
}

func TestComputeConvertsBestMove(t *testing.T) {
	var fake = &fakeProcess{best: "e7e8q"}
	var a, err = newAgent(Config{Path: "fake"}, fake, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	pos, err := common.NewPositionFromFEN("8/4P3/8/8/8/8/k7/4K3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}
	mv, err := a.Compute(context.Background(), pos, agent.Budget{MoveTime: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	if mv.String() != "e7e8q" {
		t.Fatalf("got %v", mv)
	}
	if _, err := pos.Apply(mv); err != nil {
		t.Fatal(err)
	}
}

func TestComputeWithoutBestMove(t *testing.T) {
	var a, err = newAgent(Config{Path: "fake"}, &fakeProcess{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	var _, cerr = a.Compute(context.Background(), common.NewInitialPosition(), agent.Budget{})
	var fe *agent.FailureError
	if !errors.As(cerr, &fe) {
		t.Fatalf("got %v", cerr)
	}
}

func TestComputeHonoursContext(t *testing.T) {
	var fake = &fakeProcess{best: "e2e4"}
	var a, err = newAgent(Config{Path: "fake"}, fake, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	fake.mu.Lock()
	fake.block = make(chan struct{})
	fake.mu.Unlock()

	var ctx, cancel = context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	var _, cerr = a.Compute(ctx, common.NewInitialPosition(), agent.Budget{})
	if !errors.Is(cerr, context.DeadlineExceeded) {
		t.Fatalf("got %v", cerr)
	}

	// the engine is still busy with the abandoned request
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel2()
	if _, cerr = a.Compute(ctx2, common.NewInitialPosition(), agent.Budget{}); !errors.Is(cerr, context.DeadlineExceeded) {
		t.Fatalf("second call: %v", cerr)
	}

	close(fake.block)
	if err := a.Close(); err != nil || !fake.closed {
		t.Fatal("not closed", err)
	}
}

func TestToChess(t *testing.T) {
	var fens = []string{
		common.InitialPositionFen,
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
	}
	for _, fen := range fens {
		var p, err = common.NewPositionFromFEN(fen)
		if err != nil {
			t.Fatal(err)
		}
		cp, err := ToChess(p)
		if err != nil {
			t.Fatal(err)
		}
		if cp.String() != fen {
			t.Errorf("got %v, want %v", cp.String(), fen)
		}
		if len(cp.ValidMoves()) != len(p.GenerateLegalMoves()) {
			t.Errorf("%v: %d moves, want %d", fen, len(cp.ValidMoves()), len(p.GenerateLegalMoves()))
		}
	}
}
