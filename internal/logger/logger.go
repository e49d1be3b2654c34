// Package logger constructs the zerolog.Logger used throughout the
// pipeline. There is no package-level logger: every worker and component
// receives its logger explicitly so tests can capture output and workers
// can attach stage-specific fields.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/riskpipe/supplychain/internal/config"
)

// New returns a base logger configured from cfg. Development environments
// get a human-readable console writer; everything else gets JSON suitable
// for log aggregation.
func New(cfg *config.Config) zerolog.Logger {
	var out zerolog.ConsoleWriter
	var log zerolog.Logger

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.Environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
		log = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	return log.With().Str("environment", cfg.Environment).Logger()
}

// ForStage returns a logger annotated with the pipeline stage name, the
// shape every worker main() uses before handing the logger down into its
// handler loop.
func ForStage(base zerolog.Logger, stage string) zerolog.Logger {
	return base.With().Str("stage", stage).Logger()
}
