// Package uciagent runs an external UCI engine such as Stockfish as an agent.
package uciagent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/notnil/chess"
	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/common"
)

type Config struct {
	Path       string
	SkillLevel int
}

// process is the part of *uci.Engine the agent uses.
type process interface {
	Run(cmds ...uci.Cmd) error
	SearchResults() uci.SearchResults
	Close() error
}

type Agent struct {
	cfg    Config
	eng    process
	sem    *semaphore.Weighted
	logger zerolog.Logger
}

// New starts the engine process and performs the UCI handshake.
func New(cfg Config, logger zerolog.Logger) (*Agent, error) {
	eng, err := uci.New(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("start engine %s: %w", cfg.Path, err)
	}
	a, err := newAgent(cfg, eng, logger)
	if err != nil {
		eng.Close()
		return nil, err
	}
	return a, nil
}

func newAgent(cfg Config, eng process, logger zerolog.Logger) (*Agent, error) {
	var cmds = []uci.Cmd{uci.CmdUCI, uci.CmdIsReady}
	if cfg.SkillLevel > 0 {
		cmds = append(cmds, uci.CmdSetOption{Name: "Skill Level", Value: strconv.Itoa(cfg.SkillLevel)})
	}
	cmds = append(cmds, uci.CmdUCINewGame)
	if err := eng.Run(cmds...); err != nil {
		return nil, fmt.Errorf("uci handshake: %w", err)
	}
	logger.Info().
		Str("path", cfg.Path).
		Int("skill", cfg.SkillLevel).
		Msg("uci engine ready")
	return &Agent{
		cfg:    cfg,
		eng:    eng,
		sem:    semaphore.NewWeighted(1),
		logger: logger,
	}, nil
}

type result struct {
	move common.Move
	err  error
}

// Compute sends the position to the engine. The engine process serves one
// request at a time; a request abandoned by its caller still owns the
// process until the engine answers.
func (a *Agent) Compute(ctx context.Context, pos common.Position, budget agent.Budget) (common.Move, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return common.MoveEmpty, err
	}
	var done = make(chan result, 1)
	go func() {
		defer a.sem.Release(1)
		var mv, err = a.search(pos, budget)
		done <- result{mv, err}
	}()
	select {
	case <-ctx.Done():
		return common.MoveEmpty, ctx.Err()
	case r := <-done:
		return r.move, r.err
	}
}

func (a *Agent) search(pos common.Position, budget agent.Budget) (common.Move, error) {
	var start = time.Now()
	chessPos, err := ToChess(pos)
	if err != nil {
		return common.MoveEmpty, err
	}
	var cmdGo = uci.CmdGo{MoveTime: budget.MoveTime, Depth: budget.Depth}
	if err := a.eng.Run(uci.CmdPosition{Position: chessPos}, cmdGo); err != nil {
		return common.MoveEmpty, &agent.FailureError{Agent: a.cfg.Path, Err: err}
	}
	var best = a.eng.SearchResults().BestMove
	if best == nil {
		return common.MoveEmpty, &agent.FailureError{Agent: a.cfg.Path, Err: errors.New("no bestmove")}
	}
	mv, err := common.ParseMoveLAN(best.String())
	if err != nil {
		return common.MoveEmpty, &agent.FailureError{Agent: a.cfg.Path, Err: err}
	}
	a.logger.Debug().
		Str("fen", pos.String()).
		Stringer("move", mv).
		Dur("elapsed", time.Since(start)).
		Msg("uci bestmove")
	return mv, nil
}

// Close stops the engine process once no request is running.
func (a *Agent) Close() error {
	if err := a.sem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer a.sem.Release(1)
	return a.eng.Close()
}

// ToChess converts a position through FEN.
func ToChess(pos common.Position) (*chess.Position, error) {
	var opt, err = chess.FEN(pos.String())
	if err != nil {
		return nil, fmt.Errorf("convert %v: %w", pos.String(), err)
	}
	return chess.NewGame(opt).Position(), nil
}
