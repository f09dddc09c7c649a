package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. Development and test get a console
// writer on stderr, production gets JSON on stdout.
func Setup(environment, level string) {
	SetupWriter(environment, level, nil)
}

// SetupWriter is Setup with an explicit destination. A nil out picks the default.
func SetupWriter(environment, level string, out io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if environment == "production" {
		if out == nil {
			out = os.Stdout
		}
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}

	if out == nil {
		out = os.Stderr
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
}
