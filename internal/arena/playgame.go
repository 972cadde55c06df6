package arena

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/game"
	"github.com/chessduel/duel/pkg/scheduler"
)

type clearer interface {
	Clear()
}

// playGame runs one game with both sides agent-controlled through the
// scheduler, so arena games follow the same rules for timeouts and
// fallbacks as interactive ones.
func playGame(
	ctx context.Context,
	engineA, engineB agent.Agent,
	cfg Config,
	info gameInfo,
	logger zerolog.Logger,
) (GameResult, error) {

	logger.Debug().Int("game", info.gameNumber).Msg("started game")

	for _, eng := range []agent.Agent{engineA, engineB} {
		if c, ok := eng.(clearer); ok {
			c.Clear()
		}
	}

	var g, err = game.NewGameFromFEN(info.opening)
	if err != nil {
		return GameResult{}, err
	}

	var fallbacks int
	var sched = scheduler.New(g, scheduler.Config{
		Budget: cfg.Budget,
		Grace:  cfg.Grace,
		OnTransition: func(ev scheduler.Transition) {
			if ev.To == scheduler.TimedOut || ev.Err != nil {
				fallbacks++
			}
		},
	}, logger)

	var white, black = engineA, engineB
	if !info.engineAIsWhite {
		white, black = engineB, engineA
	}
	sched.SetAgent(common.White, white)
	sched.SetAgent(common.Black, black)
	sched.SetMode(scheduler.AgentVsAgent)
	// drops a task still running when the loop below stops early
	defer sched.SetMode(scheduler.HumanVsHuman)

	var result = GameResult{
		GameNumber:     info.gameNumber,
		Opening:        info.opening,
		EngineAIsWhite: info.engineAIsWhite,
	}
	for {
		var snap = g.Snapshot()
		if snap.Terminal.IsOver() {
			result.Terminal = snap.Terminal
			result.Comment = snap.Terminal.String()
			break
		}
		if cfg.MaxPlies > 0 && snap.Ply >= cfg.MaxPlies {
			result.Comment = fmt.Sprintf("adjudicated after %v plies", snap.Ply)
			break
		}
		if _, err := sched.Wait(ctx); err != nil {
			return GameResult{}, err
		}
	}
	result.Moves = g.Moves()
	result.Fallbacks = fallbacks
	return result, nil
}
