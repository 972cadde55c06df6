package arena

import (
	"time"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/common"
)

// Player makes a fresh agent for every worker. Agents of one player are
// never shared between concurrent games.
type Player struct {
	Name string
	New  func() agent.Agent
}

type Config struct {
	Concurrency int
	Budget      agent.Budget
	Grace       time.Duration
	// Openings are FENs or move lists in standard algebraic notation.
	// Every opening is played twice with colours swapped.
	Openings []string
	// MaxPlies adjudicates a draw when a game gets this long.
	MaxPlies int
}

type gameInfo struct {
	opening        string
	engineAIsWhite bool
	gameNumber     int
}

type GameResult struct {
	GameNumber     int
	Opening        string
	EngineAIsWhite bool
	Terminal       common.TerminalState
	Comment        string
	Moves          []common.Move
	// Fallbacks counts moves the scheduler had to pick because an agent
	// failed or ran out of time.
	Fallbacks int
}

// ScoreA is the score of player A: 1, 0.5 or 0.
func (r GameResult) ScoreA() float64 {
	if r.Terminal.Kind != common.Checkmate {
		return 0.5
	}
	if (r.Terminal.Winner == common.White) == r.EngineAIsWhite {
		return 1
	}
	return 0
}

func (r GameResult) Result() string {
	if !r.Terminal.IsOver() {
		return "1/2-1/2"
	}
	return r.Terminal.Result()
}
