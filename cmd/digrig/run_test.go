package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/gwillem/digrig/pkg/excavate"
)

func TestFeedCommands(t *testing.T) {
	var sent []string
	send := func(cmd string) error {
		sent = append(sent, cmd)
		return nil
	}
	in := strings.NewReader("start\n\n  set-speed 0.8  \nstop\n")

	feedCommands(context.Background(), in, send, slog.New(slog.DiscardHandler))

	want := []string{"start", "set-speed 0.8", "stop"}
	if len(sent) != len(want) {
		t.Fatalf("sent %q, want %q", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, sent[i], want[i])
		}
	}
}

func TestFeedCommands_QueueFull(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	send := func(string) error { return excavate.ErrCommandQueueFull }

	feedCommands(context.Background(), strings.NewReader("reset\n"), send, log)

	if !strings.Contains(buf.String(), "Command dropped") || !strings.Contains(buf.String(), "command=reset") {
		t.Errorf("log = %q, want dropped reset", buf.String())
	}
}

func TestFeedCommands_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	feedCommands(ctx, strings.NewReader("start\n"), func(string) error {
		called = true
		return nil
	}, slog.New(slog.DiscardHandler))

	if called {
		t.Error("command sent after cancel")
	}
}
