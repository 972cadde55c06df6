package arena

import (
	"context"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Run plays every opening twice between a and b on cfg.Concurrency workers.
// onResult, when set, sees each finished game with the running statistics.
func Run(
	ctx context.Context,
	cfg Config,
	a, b Player,
	logger zerolog.Logger,
	onResult func(GameResult, Stats),
) (Stats, error) {
	logger.Info().Msg("arena started")
	defer logger.Info().Msg("arena finished")

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Openings == nil {
		cfg.Openings = DefaultOpenings()
	}

	logger.Info().
		Int("NumCPU", runtime.NumCPU()).
		Int("GOMAXPROCS", runtime.GOMAXPROCS(0)).
		Int("gameConcurrency", cfg.Concurrency).
		Dur("moveTime", cfg.Budget.MoveTime).
		Int("depth", cfg.Budget.Depth).
		Str("engineA", a.Name).
		Str("engineB", b.Name).
		Msg("arena settings")

	g, ctx := errgroup.WithContext(ctx)

	var gameInfos = make(chan gameInfo)
	var gameResults = make(chan GameResult)
	var stats Stats

	g.Go(func() error {
		defer close(gameInfos)
		return loadOpenings(ctx, cfg.Openings, gameInfos)
	})

	g.Go(func() error {
		stats = showResults(gameResults, logger, onResult)
		return nil
	})

	var wg = &sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return playGames(ctx, cfg, a, b, gameInfos, gameResults, logger)
		})
	}

	g.Go(func() error {
		wg.Wait()
		close(gameResults)
		return nil
	})

	var err = g.Wait()
	return stats, err
}

func playGames(
	ctx context.Context,
	cfg Config,
	a, b Player,
	gameInfos <-chan gameInfo,
	gameResults chan<- GameResult,
	logger zerolog.Logger,
) error {
	var engineA = a.New()
	var engineB = b.New()
	for gameInfo := range gameInfos {
		var res, err = playGame(ctx, engineA, engineB, cfg, gameInfo, logger)
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case gameResults <- res:
		}
	}
	return nil
}
