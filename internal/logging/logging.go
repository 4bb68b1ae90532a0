// Package logging configures the process-wide zerolog logger. It mirrors
// the teacher's startup idiom (a single configured logger constructed in
// main and threaded down through RouterContext) rather than package-level
// ad hoc log.Printf/fmt.Println calls.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger appropriate for env: pretty console output
// in development, structured JSON otherwise.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if env == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	return zerolog.New(writer).With().Timestamp().Logger()
}
