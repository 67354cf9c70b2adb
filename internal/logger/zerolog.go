package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Zerolog implements Logger using rs/zerolog.
type Zerolog struct {
	log zerolog.Logger
}

// New creates a Zerolog logger for the given component. Output goes to stderr
// so it never mixes with the JSON report on stdout; PLANNER_ENV=dev switches
// to the human console format.
func New(component string) Logger {
	return NewWithWriter(component, os.Stderr)
}

// NewWithWriter is New with an explicit destination, used by tests.
func NewWithWriter(component string, out io.Writer) Logger {
	var z zerolog.Logger
	if strings.ToLower(os.Getenv("PLANNER_ENV")) == "dev" {
		writer := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		z = zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
	} else {
		z = zerolog.New(out).With().Timestamp().Str("component", component).Logger()
	}
	return &Zerolog{log: z}
}

// SetLevel adjusts the global verbosity. Accepts zerolog level names
// (debug, info, warn, error).
func SetLevel(level string) error {
	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(parsed)
	return nil
}

func (l *Zerolog) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *Zerolog) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *Zerolog) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *Zerolog) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *Zerolog) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
