// Package logger builds the *slog.Logger values handed to every dossier
// component. Console commands get the charmbracelet handler, the API server
// and --log-file get JSON.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// ComponentKey is the attribute carrying the WithComponent name.
const ComponentKey = "component"

type config struct {
	level      slog.Level
	pretty     bool
	json       bool
	timestamps bool
	component  string
	writer     io.Writer
}

// New builds a logger from opts. Without options it is a text handler at
// Info level on os.Stderr.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:      slog.LevelInfo,
		timestamps: true,
		writer:     os.Stderr,
	}
	for _, opt := range opts {
		opt(c)
	}

	var h slog.Handler
	switch {
	case c.json:
		h = slog.NewJSONHandler(c.writer, &slog.HandlerOptions{Level: c.level})
	case c.pretty:
		return slog.New(charmlog.NewWithOptions(c.writer, charmlog.Options{
			Level:           charmLevel(c.level),
			ReportTimestamp: c.timestamps,
			Prefix:          c.component,
		}))
	default:
		h = slog.NewTextHandler(c.writer, &slog.HandlerOptions{Level: c.level})
	}

	l := slog.New(h)
	if c.component != "" {
		l = l.With(ComponentKey, c.component)
	}
	return l
}

func charmLevel(l slog.Level) charmlog.Level {
	switch {
	case l <= slog.LevelDebug:
		return charmlog.DebugLevel
	case l >= slog.LevelError:
		return charmlog.ErrorLevel
	case l >= slog.LevelWarn:
		return charmlog.WarnLevel
	default:
		return charmlog.InfoLevel
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
