// Package uci is the console front end: a line protocol in the style of UCI
// for playing against the scheduler's agents and inspecting the game.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chessduel/duel/pkg/common"
	"github.com/chessduel/duel/pkg/engine"
	"github.com/chessduel/duel/pkg/scheduler"
)

var errQuit = errors.New("quit")

type Engine interface {
	Clear()
	Search(ctx context.Context, searchParams engine.SearchParams) engine.SearchInfo
}

type Protocol struct {
	name         string
	version      string
	scheduler    *scheduler.Scheduler
	engine       Engine
	out          io.Writer
	events       chan scheduler.Transition
	thinking     bool
	engineOutput chan engine.SearchInfo
	cancel       context.CancelFunc
}

func New(name, version string, sched *scheduler.Scheduler, eng Engine, out io.Writer) *Protocol {
	return &Protocol{
		name:      name,
		version:   version,
		scheduler: sched,
		engine:    eng,
		out:       out,
		events:    make(chan scheduler.Transition, 16),
	}
}

// Publish hands a scheduler transition to the protocol loop. It never blocks;
// transitions are dropped when the console falls behind.
func (uci *Protocol) Publish(ev scheduler.Transition) {
	select {
	case uci.events <- ev:
	default:
	}
}

// Run reads commands from in until quit, end of input or ctx is done.
func (uci *Protocol) Run(ctx context.Context, in io.Reader, logger zerolog.Logger) error {
	var commands = make(chan string)

	go func() {
		defer close(commands)
		readCommands(ctx, in, commands)
	}()

	var searchResult engine.SearchInfo
	for {
		select {
		case <-ctx.Done():
			uci.stop()
			return ctx.Err()
		case si, ok := <-uci.engineOutput:
			if ok {
				fmt.Fprintln(uci.out, searchInfoToUci(si))
				searchResult = si
			} else {
				if len(searchResult.MainLine) != 0 {
					fmt.Fprintf(uci.out, "bestmove %v\n", searchResult.MainLine[0])
				}
				uci.thinking = false
				uci.cancel = nil
				uci.engineOutput = nil
				searchResult = engine.SearchInfo{}
			}
		case ev := <-uci.events:
			uci.onTransition(ev)
		case commandLine, ok := <-commands:
			if !ok {
				uci.stop()
				return nil
			}
			var err = uci.handle(commandLine)
			if errors.Is(err, errQuit) {
				uci.stop()
				return nil
			}
			if err != nil {
				logger.Warn().Str("command", commandLine).Err(err).Msg("command failed")
				fmt.Fprintf(uci.out, "error %v\n", err)
			}
		}
	}
}

func readCommands(ctx context.Context, in io.Reader, commands chan<- string) {
	var scanner = bufio.NewScanner(in)
	for scanner.Scan() {
		var commandLine = strings.TrimSpace(scanner.Text())
		if commandLine == "" {
			continue
		}
		select {
		case commands <- commandLine:
		case <-ctx.Done():
			return
		}
		if commandLine == "quit" {
			return
		}
	}
}

func (uci *Protocol) stop() {
	if uci.cancel != nil {
		uci.cancel()
	}
}

func (uci *Protocol) handle(commandLine string) error {
	var fields = strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil
	}
	var commandName = fields[0]
	fields = fields[1:]

	if uci.thinking {
		if commandName == "stop" {
			uci.cancel()
			return nil
		}
		if commandName != "quit" {
			return errors.New("search still run")
		}
	}

	var h func(fields []string) error

	switch commandName {
	case "uci":
		h = uci.uciCommand
	case "isready":
		h = uci.isReadyCommand
	case "position":
		h = uci.positionCommand
	case "fen":
		h = uci.fenCommand
	case "new", "ucinewgame":
		h = uci.newGameCommand
	case "move":
		h = uci.moveCommand
	case "moves":
		h = uci.movesCommand
	case "mode":
		h = uci.modeCommand
	case "show", "d":
		h = uci.showCommand
	case "status":
		h = uci.statusCommand
	case "go":
		h = uci.goCommand
	case "quit":
		return errQuit
	default:
		if _, err := common.ParseMoveLAN(commandName); err == nil && len(fields) == 0 {
			return uci.moveCommand([]string{commandName})
		}
	}

	if h == nil {
		return errors.New("command not found")
	}

	return h(fields)
}

func (uci *Protocol) uciCommand(fields []string) error {
	fmt.Fprintf(uci.out, "id name %s %s\n", uci.name, uci.version)
	fmt.Fprintln(uci.out, "uciok")
	return nil
}

func (uci *Protocol) isReadyCommand(fields []string) error {
	fmt.Fprintln(uci.out, "readyok")
	return nil
}

func (uci *Protocol) positionCommand(fields []string) error {
	if len(fields) == 0 {
		return errors.New("unknown position command")
	}
	var args = fields
	var token = args[0]
	var fen string
	var movesIndex = findIndexString(args, "moves")
	if token == "startpos" {
		fen = common.InitialPositionFen
	} else if token == "fen" {
		if movesIndex == -1 {
			fen = strings.Join(args[1:], " ")
		} else {
			fen = strings.Join(args[1:movesIndex], " ")
		}
	} else {
		return errors.New("unknown position command")
	}
	var moves []common.Move
	if movesIndex >= 0 && movesIndex+1 < len(args) {
		for _, smove := range args[movesIndex+1:] {
			var move, err = common.ParseMoveLAN(smove)
			if err != nil {
				return fmt.Errorf("parse move %v failed", smove)
			}
			moves = append(moves, move)
		}
	}
	return uci.scheduler.LoadPosition(fen, moves)
}

func (uci *Protocol) fenCommand(fields []string) error {
	if len(fields) == 0 {
		fmt.Fprintln(uci.out, uci.scheduler.Game().FEN())
		return nil
	}
	return uci.scheduler.LoadFEN(strings.Join(fields, " "))
}

func (uci *Protocol) newGameCommand(fields []string) error {
	uci.scheduler.Reset()
	if uci.engine != nil {
		uci.engine.Clear()
	}
	return nil
}

func (uci *Protocol) moveCommand(fields []string) error {
	if len(fields) != 1 {
		return errors.New("usage: move <lan>")
	}
	var move, err = common.ParseMoveLAN(fields[0])
	if err != nil {
		return err
	}
	snap, err := uci.scheduler.UserMove(move)
	if err != nil {
		return err
	}
	fmt.Fprintf(uci.out, "played %v\n", snap.LastMove)
	uci.printTerminal(snap.Terminal)
	return nil
}

func (uci *Protocol) movesCommand(fields []string) error {
	var p = uci.scheduler.Game().Position()
	var ml []common.Move
	if len(fields) == 0 {
		ml = p.GenerateLegalMoves()
	} else {
		var sq, err = common.ParseSquare(fields[0])
		if err != nil {
			return err
		}
		ml = p.LegalMovesFrom(sq)
	}
	var sb strings.Builder
	sb.WriteString("moves")
	for _, m := range ml {
		sb.WriteString(" ")
		sb.WriteString(m.String())
	}
	fmt.Fprintln(uci.out, sb.String())
	return nil
}

func (uci *Protocol) modeCommand(fields []string) error {
	if len(fields) == 0 {
		fmt.Fprintf(uci.out, "mode %v\n", uci.scheduler.Mode())
		return nil
	}
	var mode, err = scheduler.ParseMode(fields[0])
	if err != nil {
		return err
	}
	uci.scheduler.SetMode(mode)
	return nil
}

func (uci *Protocol) showCommand(fields []string) error {
	var snap = uci.scheduler.Game().Snapshot()
	WriteBoard(uci.out, &snap.Position)
	fmt.Fprintf(uci.out, "fen %v\n", snap.Position.String())
	return nil
}

func (uci *Protocol) statusCommand(fields []string) error {
	var snap = uci.scheduler.Game().Snapshot()
	var states = uci.scheduler.States()
	fmt.Fprintf(uci.out, "status ply %d side %v check %v result %v white %v black %v\n",
		snap.Ply, snap.Position.SideToMove, snap.InCheck, snap.Terminal.Result(),
		states[common.White], states[common.Black])
	uci.printTerminal(snap.Terminal)
	return nil
}

func (uci *Protocol) goCommand(fields []string) error {
	if uci.engine == nil {
		return errors.New("no analysis engine")
	}
	var limits = parseLimits(fields)
	var ctx, cancel = context.WithCancel(context.TODO())
	uci.cancel = cancel
	uci.thinking = true
	var output = make(chan engine.SearchInfo, 3)
	uci.engineOutput = output
	var positions = uci.scheduler.Game().Positions()
	go func() {
		defer cancel()
		var searchResult = uci.engine.Search(ctx, engine.SearchParams{
			Positions: positions,
			Limits:    limits,
			Progress: func(si engine.SearchInfo) {
				select {
				case output <- si:
				default:
				}
			},
		})
		output <- searchResult
		close(output)
	}()
	return nil
}

func (uci *Protocol) onTransition(ev scheduler.Transition) {
	if ev.Move == common.MoveEmpty {
		return
	}
	fmt.Fprintf(uci.out, "agent %v %v (%v)\n", ev.Color, ev.Move, ev.To)
	uci.printTerminal(uci.scheduler.Game().Classify())
}

func (uci *Protocol) printTerminal(ts common.TerminalState) {
	if ts.IsOver() {
		fmt.Fprintf(uci.out, "result %v {%v}\n", ts.Result(), ts)
	}
}

func searchInfoToUci(si engine.SearchInfo) string {
	var sb = &strings.Builder{}
	fmt.Fprintf(sb, "info depth %v", si.Depth)
	if mate := engine.MateIn(si.Score); mate != 0 {
		fmt.Fprintf(sb, " score mate %v", mate)
	} else {
		fmt.Fprintf(sb, " score cp %v", si.Score)
	}
	var timeMs = si.Time.Milliseconds()
	var nps = si.Nodes * 1000 / (timeMs + 1)
	fmt.Fprintf(sb, " nodes %v time %v nps %v", si.Nodes, timeMs, nps)
	if len(si.MainLine) != 0 {
		fmt.Fprintf(sb, " pv")
		for _, move := range si.MainLine {
			sb.WriteString(" ")
			sb.WriteString(move.String())
		}
	}
	return sb.String()
}

func parseLimits(args []string) (result engine.LimitsType) {
	var intArg = func(i int) int {
		if i+1 >= len(args) {
			return 0
		}
		var v, _ = strconv.Atoi(args[i+1])
		return v
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth":
			result.Depth = intArg(i)
			i++
		case "nodes":
			result.Nodes = intArg(i)
			i++
		case "movetime":
			result.MoveTime = time.Duration(intArg(i)) * time.Millisecond
			i++
		case "infinite":
			result.Infinite = true
		}
	}
	return
}

func findIndexString(slice []string, value string) int {
	for p, v := range slice {
		if v == value {
			return p
		}
	}
	return -1
}
