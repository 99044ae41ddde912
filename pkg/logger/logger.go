// Package logger emits structured JSON events via zerolog. Handlers log
// named events with a flat field map rather than formatted strings.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

var log = zerolog.Nop()

func Init() {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && os.Getenv("LOG_LEVEL") != "" {
		level = parsed
	}
	log = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func Info(event string, fields map[string]interface{}) {
	log.Info().Fields(fields).Str("event", event).Send()
}

func Warn(event string, fields map[string]interface{}) {
	log.Warn().Fields(fields).Str("event", event).Send()
}

func Error(event string, err error, fields map[string]interface{}) {
	log.Error().Err(err).Fields(fields).Str("event", event).Send()
}

func InfoWithUser(userID, event string, fields map[string]interface{}) {
	log.Info().Str("user_id", userID).Fields(fields).Str("event", event).Send()
}

func WarnWithUser(userID, event string, fields map[string]interface{}) {
	log.Warn().Str("user_id", userID).Fields(fields).Str("event", event).Send()
}
