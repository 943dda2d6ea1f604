// Package logx configures the process-wide zerolog logger. Binaries import
// the autoload subpackage so the logger is ready before any package runs
// its wiring; tests that want a specific level call Init directly.
package logx

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

// Init replaces the global logger. Logs go to stderr because the CLI front
// end owns stdout for the conversation itself.
func Init(opts ...Config) {
	var conf Config
	if len(opts) > 0 {
		conf = opts[0]
	}

	out := io.Writer(os.Stderr)
	if conf.PrettyFormat {
		out = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
		})
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).Level(level).With().Timestamp().Caller().Logger()
}

// Component returns a child of the global logger tagged with the component
// name. Stores and clients take one at construction so their log lines are
// attributable.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
