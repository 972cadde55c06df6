package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chessduel/duel/pkg/agent"
	"github.com/chessduel/duel/pkg/scheduler"
)

const (
	AgentBuiltin = "builtin"
	AgentUCI     = "uci"
)

// Config holds the launcher settings. Sources are applied in order:
// defaults, JSON file, DUEL_* environment, command line flags.
type Config struct {
	Agent         string        `json:"agent"`
	StockfishPath string        `json:"stockfish_path"`
	SkillLevel    int           `json:"skill_level"`
	Depth         int           `json:"depth"`
	MaxDepth      int           `json:"max_depth"`
	MoveTime      time.Duration `json:"move_time"`
	Timeout       time.Duration `json:"timeout"`
	Grace         time.Duration `json:"grace"`
	Mode          string        `json:"mode"`
	FEN           string        `json:"fen"`
	Hash          int           `json:"hash"`
	Addr          string        `json:"addr"`
	LogLevel      string        `json:"log_level"`
}

func Default() Config {
	return Config{
		Agent:         AgentBuiltin,
		StockfishPath: "stockfish",
		SkillLevel:    10,
		Depth:         15,
		MaxDepth:      20,
		Timeout:       30 * time.Second,
		Grace:         500 * time.Millisecond,
		Mode:          "hve",
		Hash:          16,
		LogLevel:      "info",
	}
}

// Load builds the configuration from all sources. args excludes the program
// name. The file named by -config (or DUEL_CONFIG) is read before the
// environment, so flags and env always win over it.
func Load(args []string, getenv func(string) string) (Config, error) {
	var cfg = Default()

	var path = getenv("DUEL_CONFIG")
	for i, arg := range args {
		if v, ok := strings.CutPrefix(arg, "-config="); ok {
			path = v
		} else if v, ok := strings.CutPrefix(arg, "--config="); ok {
			path = v
		} else if (arg == "-config" || arg == "--config") && i+1 < len(args) {
			path = args[i+1]
		}
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}

	var fs = flag.NewFlagSet("duel", flag.ContinueOnError)
	fs.String("config", path, "JSON configuration file")
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&cfg.Agent, "agent", cfg.Agent, "move agent: builtin or uci")
	fs.StringVar(&cfg.StockfishPath, "stockfish", cfg.StockfishPath, "path of the UCI engine binary")
	fs.IntVar(&cfg.SkillLevel, "skill", cfg.SkillLevel, "UCI engine skill level (0-20)")
	fs.IntVar(&cfg.Depth, "depth", cfg.Depth, "search depth")
	fs.IntVar(&cfg.MaxDepth, "maxdepth", cfg.MaxDepth, "upper bound for depth")
	fs.DurationVar(&cfg.MoveTime, "movetime", cfg.MoveTime, "time per agent move (0 derives it from skill and depth)")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "upper bound for the time per agent move")
	fs.DurationVar(&cfg.Grace, "grace", cfg.Grace, "extra time before an agent is declared timed out")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "control mode: hvh, hve, evh or eve")
	fs.StringVar(&cfg.FEN, "fen", cfg.FEN, "start position")
	fs.IntVar(&cfg.Hash, "hash", cfg.Hash, "built-in engine hash size in MB")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "serve the HTTP API on this address instead of the console")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level")
}

// LoadFile merges a JSON file into cfg. Durations are strings such as "2s".
func (cfg *Config) LoadFile(path string) error {
	var data, err = os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var file struct {
		Config
		MoveTime string `json:"move_time"`
		Timeout  string `json:"timeout"`
		Grace    string `json:"grace"`
	}
	file.Config = *cfg
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %v: %w", path, err)
	}
	var result = file.Config
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"move_time", file.MoveTime, &result.MoveTime},
		{"timeout", file.Timeout, &result.Timeout},
		{"grace", file.Grace, &result.Grace},
	} {
		if d.value == "" {
			continue
		}
		var v, err = time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("parse config %v: %v: %w", path, d.name, err)
		}
		*d.dst = v
	}
	*cfg = result
	return nil
}

func (cfg *Config) applyEnv(getenv func(string) string) error {
	cfg.Agent = envString(getenv, "DUEL_AGENT", cfg.Agent)
	cfg.StockfishPath = envString(getenv, "DUEL_STOCKFISH", cfg.StockfishPath)
	cfg.Mode = envString(getenv, "DUEL_MODE", cfg.Mode)
	cfg.FEN = envString(getenv, "DUEL_FEN", cfg.FEN)
	cfg.Addr = envString(getenv, "DUEL_ADDR", cfg.Addr)
	cfg.LogLevel = envString(getenv, "DUEL_LOG", cfg.LogLevel)

	var err error
	if cfg.SkillLevel, err = envInt(getenv, "DUEL_SKILL", cfg.SkillLevel); err != nil {
		return err
	}
	if cfg.Depth, err = envInt(getenv, "DUEL_DEPTH", cfg.Depth); err != nil {
		return err
	}
	if cfg.MaxDepth, err = envInt(getenv, "DUEL_MAXDEPTH", cfg.MaxDepth); err != nil {
		return err
	}
	if cfg.Hash, err = envInt(getenv, "DUEL_HASH", cfg.Hash); err != nil {
		return err
	}
	if cfg.MoveTime, err = envDuration(getenv, "DUEL_MOVETIME", cfg.MoveTime); err != nil {
		return err
	}
	if cfg.Timeout, err = envDuration(getenv, "DUEL_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	if cfg.Grace, err = envDuration(getenv, "DUEL_GRACE", cfg.Grace); err != nil {
		return err
	}
	return nil
}

func envString(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	var v = getenv(key)
	if v == "" {
		return def, nil
	}
	var n, err = strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", key, err)
	}
	return n, nil
}

func envDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	var v = getenv(key)
	if v == "" {
		return def, nil
	}
	var d, err = time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", key, err)
	}
	return d, nil
}

// Validate rejects unusable settings and clamps the depth into range.
func (cfg *Config) Validate() error {
	var errs []error
	switch cfg.Agent {
	case AgentBuiltin:
	case AgentUCI:
		if cfg.StockfishPath == "" {
			errs = append(errs, errors.New("uci agent needs a stockfish path"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown agent %q", cfg.Agent))
	}
	if cfg.SkillLevel < 0 || cfg.SkillLevel > 20 {
		errs = append(errs, fmt.Errorf("skill level %v out of range 0-20", cfg.SkillLevel))
	}
	if cfg.MaxDepth < 1 || cfg.MaxDepth > agent.MaxDepth {
		errs = append(errs, fmt.Errorf("max depth %v out of range 1-%v", cfg.MaxDepth, agent.MaxDepth))
	}
	if cfg.Depth < 1 {
		errs = append(errs, fmt.Errorf("depth %v must be positive", cfg.Depth))
	}
	if cfg.Depth > cfg.MaxDepth {
		cfg.Depth = cfg.MaxDepth
	}
	if cfg.MoveTime < 0 || cfg.Timeout <= 0 || cfg.Grace < 0 {
		errs = append(errs, errors.New("durations must not be negative and timeout must be positive"))
	}
	if cfg.Hash < 1 {
		errs = append(errs, fmt.Errorf("hash %v must be positive", cfg.Hash))
	}
	if _, err := scheduler.ParseMode(cfg.Mode); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Budget is the per-move budget for agents: the explicit move time, else the
// time derived from skill level and depth, never above Timeout.
func (cfg *Config) Budget() agent.Budget {
	var budget = agent.BudgetFor(cfg.SkillLevel, cfg.Depth)
	if cfg.MoveTime > 0 {
		budget.MoveTime = cfg.MoveTime
	}
	if budget.MoveTime > cfg.Timeout {
		budget.MoveTime = cfg.Timeout
	}
	return budget
}

func (cfg *Config) ControlMode() scheduler.Mode {
	var m, _ = scheduler.ParseMode(cfg.Mode)
	return m
}
