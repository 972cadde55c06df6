package arena

import (
	"math"

	"github.com/rs/zerolog"
)

type Stats struct {
	Games, Wins, Losses, Draws int
	Fallbacks                  int
	WinningFraction            float64
	EloDifference              float64
	LOS                        float64
}

func showResults(
	gameResults <-chan GameResult,
	logger zerolog.Logger,
	onResult func(GameResult, Stats),
) Stats {
	var wins, losses, draws, fallbacks int
	var stat Stats
	for gameResult := range gameResults {
		switch gameResult.ScoreA() {
		case 1:
			wins++
		case 0:
			losses++
		default:
			draws++
		}
		fallbacks += gameResult.Fallbacks
		stat = ComputeStats(wins, losses, draws)
		stat.Fallbacks = fallbacks
		logger.Info().
			Int("game", gameResult.GameNumber).
			Str("result", gameResult.Result()).
			Str("comment", gameResult.Comment).
			Int("plies", len(gameResult.Moves)).
			Msg("finished game")
		logger.Info().
			Msgf("Score: %v - %v - %v  [%.3f] %v, Elo difference: %.1f, LOS: %.1f %%",
				wins, losses, draws, stat.WinningFraction, stat.Games,
				stat.EloDifference, stat.LOS*100)
		if onResult != nil {
			onResult(gameResult, stat)
		}
	}
	return stat
}

// https://www.chessprogramming.org/Match_Statistics
func ComputeStats(wins, losses, draws int) Stats {
	var games = wins + losses + draws
	var result = Stats{Games: games, Wins: wins, Losses: losses, Draws: draws, LOS: 0.5}
	if games == 0 {
		return result
	}
	result.WinningFraction = (float64(wins) + 0.5*float64(draws)) / float64(games)
	result.EloDifference = -math.Log(1/result.WinningFraction-1) * 400 / math.Ln10
	if wins+losses != 0 {
		result.LOS = 0.5 + 0.5*math.Erf(float64(wins-losses)/math.Sqrt(2*float64(wins+losses)))
	}
	return result
}
