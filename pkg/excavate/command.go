package excavate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownCommand is returned by ParseCommand for unrecognized input.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrRejected is returned when a command does not fit the current phase.
	ErrRejected = errors.New("command rejected")
)

// Verb is a typed operator command.
type Verb int

const (
	Start Verb = iota
	Stop
	Reset
	ResetCache
	SetSpeed
)

func (v Verb) String() string {
	switch v {
	case Start:
		return "start"
	case Stop:
		return "stop"
	case Reset:
		return "reset"
	case ResetCache:
		return "reset-cache"
	case SetSpeed:
		return "set-speed"
	default:
		return fmt.Sprintf("verb(%d)", int(v))
	}
}

// Command is a parsed operator command. Speed is set for SetSpeed only.
type Command struct {
	Verb  Verb
	Speed float64
}

func (c Command) String() string {
	if c.Verb == SetSpeed {
		return fmt.Sprintf("set-speed %g", c.Speed)
	}
	return c.Verb.String()
}

// ParseCommand parses a command string. Matching is case-sensitive:
//
//	start | enable
//	stop | disable
//	reset
//	reset-cache
//	set-speed <rpm>
func ParseCommand(s string) (Command, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty", ErrUnknownCommand)
	}

	switch fields[0] {
	case "start", "enable":
		return Command{Verb: Start}, nil
	case "stop", "disable":
		return Command{Verb: Stop}, nil
	case "reset":
		return Command{Verb: Reset}, nil
	case "reset-cache":
		return Command{Verb: ResetCache}, nil
	case "set-speed":
		if len(fields) != 2 {
			return Command{}, fmt.Errorf("set-speed: expected one value, got %d", len(fields)-1)
		}
		speed, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Command{}, fmt.Errorf("parse speed %q: %w", fields[1], err)
		}
		return Command{Verb: SetSpeed, Speed: speed}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
}
