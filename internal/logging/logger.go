// Package logging builds the zerolog logger shared by the server, the
// repositories and the booking event consumer.
package logging

import (
    "context"
    "io"
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"
)

// New returns a logger for the given environment.  Development
// environments get a human readable console writer; everything else logs
// JSON to stdout.  LOG_LEVEL overrides the default info level.
func New(env string) zerolog.Logger {
    var w io.Writer = os.Stdout
    if isDev(env) && os.Getenv("LOG_FORMAT") != "json" {
        w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
    }
    return NewWithWriter(w, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter returns a timestamped logger writing to w at the named
// level; unknown or empty levels fall back to info.
func NewWithWriter(w io.Writer, level string) zerolog.Logger {
    lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
    if err != nil || lvl == zerolog.NoLevel {
        lvl = zerolog.InfoLevel
    }
    return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "car-rental").Logger()
}

// FromContext returns the request scoped logger stored by the request
// logging middleware, or a disabled logger.
func FromContext(ctx context.Context) *zerolog.Logger {
    return zerolog.Ctx(ctx)
}

func isDev(env string) bool {
    switch strings.ToLower(env) {
    case "dev", "development", "local", "test":
        return true
    }
    return false
}
