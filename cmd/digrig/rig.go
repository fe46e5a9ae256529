package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/gwillem/digrig/pkg/config"
	"github.com/gwillem/digrig/pkg/excavate"
	"github.com/gwillem/digrig/pkg/status"
)

// loadConfig reads the config file, or returns an all-bench rig when bench is
// set and no file exists.
func loadConfig(bench bool) (*config.Config, error) {
	cfg, err := config.LoadFrom(opts.Config)
	switch {
	case err == nil:
	case bench && os.IsNotExist(err):
		cfg = config.Default()
	case os.IsNotExist(err):
		return nil, fmt.Errorf("no configuration found in %s, run 'digrig setup' or use --bench", opts.Config)
	default:
		return nil, err
	}

	if bench {
		cfg.Devices = config.BenchDevices(cfg.Rig.Tag)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// rig is an assembled controller with its open resources.
type rig struct {
	ctrl    *excavate.Controller
	log     *slog.Logger
	devices io.Closer
	journal *os.File
}

func (r *rig) Close() error {
	err := r.devices.Close()
	if r.journal != nil {
		r.journal.Close()
	}
	return err
}

// buildRig creates the devices and a controller logging to sink. fallback
// receives the lines the sink cannot take.
func buildRig(cfg *config.Config, sink status.Sink, fallback io.Writer, level slog.Level) (*rig, error) {
	dir, devices, err := cfg.Build(clockwork.NewRealClock())
	if err != nil {
		return nil, fmt.Errorf("build rig: %w", err)
	}
	r := &rig{devices: devices}

	logOpts := status.Options{Level: level, Fallback: fallback}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			devices.Close()
			return nil, fmt.Errorf("open log file: %w", err)
		}
		r.journal = f
		logOpts.Journal = f
	}

	r.log = status.NewLogger(sink, logOpts)
	ctrl, err := excavate.New(dir, cfg.Rig, excavate.WithLogger(r.log))
	if err != nil {
		r.Close()
		return nil, err
	}
	r.ctrl = ctrl
	return r, nil
}
