package utils

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger. Development gets a
// human-readable console writer, everything else stays JSON.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// PrintLogInfo records the outcome of a handler call.
func PrintLogInfo(email *string, statusCode int, handler string, err error) {
	evt := log.Info()
	switch {
	case statusCode >= 500:
		evt = log.Error()
	case statusCode >= 400:
		evt = log.Warn()
	}
	if err != nil {
		evt = evt.Err(err)
	}

	user := "unknown"
	if email != nil {
		user = *email
	}

	evt.Str("user", user).Int("status", statusCode).Msg(handler)
}
