package excavate

import (
	"errors"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  Command
	}{
		{"start", Command{Verb: Start}},
		{"enable", Command{Verb: Start}},
		{"stop", Command{Verb: Stop}},
		{"disable", Command{Verb: Stop}},
		{"reset", Command{Verb: Reset}},
		{"reset-cache", Command{Verb: ResetCache}},
		{"set-speed 1.5", Command{Verb: SetSpeed, Speed: 1.5}},
		{"set-speed -0.25", Command{Verb: SetSpeed, Speed: -0.25}},
		{"  start \n", Command{Verb: Start}},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.input)
		if err != nil {
			t.Errorf("ParseCommand(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
	}
}

func TestParseCommand_Errors(t *testing.T) {
	unknown := []string{"", "Start", "RESET", "dig"}
	for _, input := range unknown {
		if _, err := ParseCommand(input); !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("ParseCommand(%q) = %v, want ErrUnknownCommand", input, err)
		}
	}

	malformed := []string{"set-speed", "set-speed fast", "set-speed 1 2"}
	for _, input := range malformed {
		if _, err := ParseCommand(input); err == nil {
			t.Errorf("ParseCommand(%q) should fail", input)
		}
	}
}

func TestCommand_String(t *testing.T) {
	if got := (Command{Verb: SetSpeed, Speed: 0.5}).String(); got != "set-speed 0.5" {
		t.Errorf("String() = %q", got)
	}
	if got := (Command{Verb: ResetCache}).String(); got != "reset-cache" {
		t.Errorf("String() = %q", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig invalid: %v", err)
	}

	bad := DefaultConfig()
	bad.RotationSpeed = 0
	bad.FillThreshold = 1.2
	bad.RetractRate = -1
	if err := bad.Validate(); err == nil {
		t.Error("Validate accepted bad config")
	}

	slow := DefaultConfig()
	slow.RotationSpeed = 1e-10
	if err := slow.Validate(); err == nil {
		t.Error("Validate accepted a speed whose step interval overflows")
	}

	if got := DefaultConfig().CycleInterval().Milliseconds(); got != 100 {
		t.Errorf("CycleInterval() = %dms, want 100ms", got)
	}
}
