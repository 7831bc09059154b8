// Package logging configures the process-wide zerolog logger. Init is safe to
// call from any goroutine; only the first call has an effect.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/streamvr/server/internal/config"
)

var initOnce sync.Once

// Init installs the global logger described by cfg. Later calls are no-ops
// so that every entry point can call it without coordinating.
func Init(cfg config.LogConfig) {
	initOnce.Do(func() {
		w, err := output(cfg, os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "logging: %v, writing to stderr\n", err)
			w = os.Stderr
		}
		zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	})
}

// ParseLevel maps a config level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func output(cfg config.LogConfig, stderr io.Writer) (io.Writer, error) {
	w := stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w = f
	}
	if cfg.Format == "json" {
		return w, nil
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
		NoColor:    cfg.File != "",
	}, nil
}
