package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/chessduel/duel/internal/config"
	"github.com/chessduel/duel/internal/httpx"
	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/agent/uciagent"
	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/engine"
	"github.com/chessduel/duel/pkg/game"
	"github.com/chessduel/duel/pkg/scheduler"
	"github.com/chessduel/duel/pkg/uci"
)

const (
	name = "Duel"
)

var (
	versionName = "dev"
	buildDate   = "(null)"
	gitRevision = "(null)"
)

func main() {
	var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if err := run(logger); err != nil {
		logger.Error().Err(err).Msg("duel failed")
		os.Exit(1)
	}
}

func run(logger zerolog.Logger) error {
	var cfg, err = config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger = logger.Level(level)

	logger.Info().
		Str("VersionName", versionName).
		Str("BuildDate", buildDate).
		Str("GitRevision", gitRevision).
		Str("RuntimeVersion", runtime.Version()).
		Str("GOARCH", runtime.GOARCH).
		Str("GOOS", runtime.GOOS).
		Int("NumCPU", runtime.NumCPU()).
		Msg(name)
	logger.Debug().Interface("config", cfg).Msg("configuration")

	var g = game.NewGame()
	if cfg.FEN != "" {
		if g, err = game.NewGameFromFEN(cfg.FEN); err != nil {
			return err
		}
	}

	var options = engine.NewOptions()
	options.Hash = cfg.Hash
	options.MaxDepth = cfg.MaxDepth
	var eng = engine.New(options)
	eng.Prepare()

	var mover agent.Agent = eng
	if cfg.Agent == config.AgentUCI {
		var ua, err = uciagent.New(uciagent.Config{Path: cfg.StockfishPath, SkillLevel: cfg.SkillLevel}, logger)
		if err != nil {
			return err
		}
		defer ua.Close()
		mover = ua
	}

	var publish = func(scheduler.Transition) {}
	var sched = scheduler.New(g, scheduler.Config{
		Budget: cfg.Budget(),
		Grace:  cfg.Grace,
		OnTransition: func(ev scheduler.Transition) {
			publish(ev)
		},
	}, logger)
	sched.SetAgent(common.White, mover)
	sched.SetAgent(common.Black, mover)

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	group, ctx := errgroup.WithContext(ctx)

	if cfg.Addr != "" {
		var srv = httpx.NewServer(sched, logger)
		publish = srv.Publish
		group.Go(func() error {
			return srv.Listen(cfg.Addr)
		})
		group.Go(func() error {
			<-ctx.Done()
			var shutdownCtx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Close(shutdownCtx)
		})
	} else {
		var protocol = uci.New(name, versionName, sched, eng, os.Stdout)
		publish = protocol.Publish
		group.Go(func() error {
			// quit or end of input ends the program
			defer cancel()
			return protocol.Run(ctx, os.Stdin, logger)
		})
	}

	sched.SetMode(cfg.ControlMode())
	group.Go(func() error {
		return sched.Run(ctx)
	})

	err = group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
