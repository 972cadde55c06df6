package scheduler

import (
	"fmt"
	"strings"
)

// Control says who moves for one side.
type Control int8

const (
	Human Control = iota
	Agent
)

func (c Control) String() string {
	if c == Agent {
		return "agent"
	}
	return "human"
}

// Mode holds the control of white and black, indexed by common.Color.
type Mode [2]Control

var (
	HumanVsHuman = Mode{Human, Human}
	HumanVsAgent = Mode{Human, Agent}
	AgentVsHuman = Mode{Agent, Human}
	AgentVsAgent = Mode{Agent, Agent}
)

var modeNames = map[Mode]string{
	HumanVsHuman: "hvh",
	HumanVsAgent: "hve",
	AgentVsHuman: "evh",
	AgentVsAgent: "eve",
}

func (m Mode) String() string {
	return modeNames[m]
}

// ParseMode accepts hvh, hve, evh, eve (e for engine) and the numbers
// 0, 1, 2 of older configurations for hvh, hve and eve.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "0":
		return HumanVsHuman, nil
	case "1":
		return HumanVsAgent, nil
	case "2":
		return AgentVsAgent, nil
	}
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("unknown mode %q", s)
}

// SlotState is the state of the per-side task slot.
type SlotState int8

const (
	Idle SlotState = iota
	Dispatched
	Completed
	TimedOut
	Cancelled
)

func (s SlotState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatched:
		return "dispatched"
	case Completed:
		return "completed"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("SlotState(%d)", int8(s))
}
