// Package logger builds the zerolog logger shared by every component.
//
// Each line is a JSON object carrying "ts" (RFC3339Nano in the configured
// location), "level" and "msg", plus whatever fields the caller attaches.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.MessageFieldName = "msg"
}

// tsHook stamps each event with the wall clock in a fixed location.
type tsHook struct {
	loc *time.Location
	now func() time.Time
}

func (h tsHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	e.Str("ts", h.now().In(h.loc).Format(time.RFC3339Nano))
}

// New returns a JSON logger writing to w. Unknown levels fall back to info.
func New(level string, w io.Writer, loc *time.Location) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if loc == nil {
		loc = time.UTC
	}
	return zerolog.New(w).
		Level(ParseLevel(level)).
		Hook(tsHook{loc: loc, now: time.Now})
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Component returns a child logger tagged with the component field.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
