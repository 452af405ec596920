package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the JSON logger that stands in for the browser's developer console. Output goes to a
// rotating file so it never interleaves with the terminal UI.
func newLogger(cfg logConfig) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.File == "-" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), io.NopCloser(nil), nil
	}

	path := cfg.File
	if path == "" {
		cfgDir, err := os.UserConfigDir()
		if err != nil {
			return nil, nil, fmt.Errorf("error getting user config dir: %w", err)
		}
		path = filepath.Join(cfgDir, "chatwidget", "chatwidget.log")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("error creating log directory: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return slog.New(slog.NewJSONHandler(lj, opts)), lj, nil
}
