package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/internal/arena"
	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/engine"
)

type Config struct {
	Concurrency int
	MoveTime    time.Duration
	DepthA      int
	DepthB      int
	MaxPlies    int
	Hash        int
}

var config Config

func main() {
	var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	var err = run(logger)
	if err != nil {
		logger.Error().Err(err).Msg("arena failed")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger) error {
	flag.IntVar(&config.Concurrency, "concurrency", 4, "Number of games played at once")
	flag.DurationVar(&config.MoveTime, "movetime", 100*time.Millisecond, "Time per move")
	flag.IntVar(&config.DepthA, "deptha", 0, "Depth limit of engine A (0 for none)")
	flag.IntVar(&config.DepthB, "depthb", 4, "Depth limit of engine B (0 for none)")
	flag.IntVar(&config.MaxPlies, "maxplies", 300, "Adjudicate a draw after this many plies")
	flag.IntVar(&config.Hash, "hash", 16, "Hash size in MB per engine")
	flag.Parse()

	logger.Info().Interface("config", config).Msg("arena config")

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var stats, err = arena.Run(ctx,
		arena.Config{
			Concurrency: config.Concurrency,
			Budget:      agent.Budget{MoveTime: config.MoveTime},
			Grace:       config.MoveTime / 2,
			MaxPlies:    config.MaxPlies,
		},
		newPlayer("A", config.DepthA),
		newPlayer("B", config.DepthB),
		logger,
		nil,
	)
	if err != nil {
		return err
	}
	logger.Info().
		Int("wins", stats.Wins).
		Int("losses", stats.Losses).
		Int("draws", stats.Draws).
		Int("fallbacks", stats.Fallbacks).
		Float64("elo", stats.EloDifference).
		Float64("los", stats.LOS).
		Msg("match result")
	return nil
}

func newPlayer(name string, depth int) arena.Player {
	return arena.Player{
		Name: name,
		New: func() agent.Agent {
			var options = engine.NewOptions()
			options.Name = name
			options.Hash = config.Hash
			if depth > 0 {
				options.MaxDepth = depth
			}
			var eng = engine.New(options)
			eng.Prepare()
			return eng
		},
	}
}
