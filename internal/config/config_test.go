package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chessduel/duel/pkg/scheduler"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string {
		return m[key]
	}
}

func TestDefaults(t *testing.T) {
	var cfg, err = Load(nil, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Errorf("got %+v, want %+v", cfg, Default())
	}
	if cfg.ControlMode() != scheduler.HumanVsAgent {
		t.Error(cfg.ControlMode())
	}
	// skill 10, depth 15
	if got := cfg.Budget(); got.MoveTime != 5*time.Second || got.Depth != 15 {
		t.Error(got)
	}
}

func TestPrecedence(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "duel.json")
	var content = `{"mode": "eve", "depth": 8, "skill_level": 3, "grace": "1s", "stockfish_path": "/opt/sf"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	var env = envMap(map[string]string{
		"DUEL_CONFIG": path,
		"DUEL_DEPTH":  "9",
		"DUEL_MODE":   "hvh",
	})
	var cfg, err = Load([]string{"-mode", "evh"}, env)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StockfishPath != "/opt/sf" || cfg.SkillLevel != 3 || cfg.Grace != time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Depth != 9 {
		t.Errorf("env should override file, depth %v", cfg.Depth)
	}
	if cfg.Mode != "evh" {
		t.Errorf("flag should override env, mode %v", cfg.Mode)
	}
}

func TestConfigFlagPointsAtFile(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "c.json")
	if err := os.WriteFile(path, []byte(`{"agent": "uci"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	var cfg, err = Load([]string{"-config", path}, envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Agent != AgentUCI {
		t.Error(cfg.Agent)
	}
}

func TestValidate(t *testing.T) {
	var tests = []struct {
		name   string
		modify func(*Config)
		errSub string
	}{
		{"unknown agent", func(c *Config) { c.Agent = "gnuchess" }, "unknown agent"},
		{"skill", func(c *Config) { c.SkillLevel = 21 }, "skill level"},
		{"max depth", func(c *Config) { c.MaxDepth = 40 }, "max depth"},
		{"depth", func(c *Config) { c.Depth = 0 }, "depth"},
		{"timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"mode", func(c *Config) { c.Mode = "xx" }, "unknown mode"},
		{"hash", func(c *Config) { c.Hash = 0 }, "hash"},
	}
	for _, test := range tests {
		var cfg = Default()
		test.modify(&cfg)
		var err = cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), test.errSub) {
			t.Errorf("%v: got %v", test.name, err)
		}
	}
}

func TestDepthClampedToMaxDepth(t *testing.T) {
	var cfg = Default()
	cfg.Depth = 24
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Depth != cfg.MaxDepth {
		t.Error(cfg.Depth)
	}
}

func TestBudgetCappedByTimeout(t *testing.T) {
	var cfg = Default()
	cfg.MoveTime = time.Minute
	cfg.Timeout = 3 * time.Second
	if got := cfg.Budget().MoveTime; got != 3*time.Second {
		t.Error(got)
	}
}

func TestBadEnv(t *testing.T) {
	var _, err = Load(nil, envMap(map[string]string{"DUEL_GRACE": "soon"}))
	if err == nil || !strings.Contains(err.Error(), "DUEL_GRACE") {
		t.Error(err)
	}
}
