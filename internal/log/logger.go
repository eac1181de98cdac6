package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger: human-readable console output in
// dev, plain JSON to stdout everywhere else.
func Init(env string) {
	zerolog.TimeFieldFormat = time.RFC3339
	var out zerolog.LevelWriter
	if env == "dev" {
		out = zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		out = zerolog.MultiLevelWriter(os.Stdout)
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
