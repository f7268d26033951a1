// Package ulog wraps zerolog the way the teacher's util package wraps it:
// a named, service-tagged logger with a pretty console writer for
// interactive use and a plain JSON writer for production, selected by an
// environment variable instead of the teacher's runtime config store.
package ulog

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logger handed to every component constructor in this
// module. It is a thin rename of zerolog.Logger so call sites read
// log.Info().Str(...).Msg(...) exactly as the teacher's code does.
type Logger struct {
	zerolog.Logger
	service string
}

// New returns a Logger tagged with service, honoring OWONERO_LOG_FORMAT
// ("json" or "console", default "console") and OWONERO_LOG_LEVEL (default
// "info").
func New(service string) Logger {
	if service == "" {
		service = "owonero"
	}

	var base zerolog.Logger
	if strings.EqualFold(os.Getenv("OWONERO_LOG_FORMAT"), "json") {
		base = zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
	} else {
		out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		base = zerolog.New(out).With().Timestamp().Str("service", service).Logger()
	}

	base = base.Level(levelFromEnv())

	return Logger{Logger: base, service: service}
}

func levelFromEnv() zerolog.Level {
	switch strings.ToUpper(os.Getenv("OWONERO_LOG_LEVEL")) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child Logger tagged with an additional component name,
// e.g. log.With("miner") for a package-scoped sub-logger.
func (l Logger) With(component string) Logger {
	return Logger{Logger: l.Logger.With().Str("component", component).Logger(), service: l.service}
}
