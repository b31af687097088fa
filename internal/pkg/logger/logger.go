// internal/pkg/logger/logger.go
package logger

import (
	"io"
	"time"

	"github.com/fankick/storefront/internal/config"
	"github.com/sirupsen/logrus"
)

// New builds a logrus logger from the logging configuration
func New(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

// Discard returns an entry that drops everything. Stores and services fall back to it when
// no logger is injected.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// OrDiscard returns entry, or a discarding entry when entry is nil
func OrDiscard(entry *logrus.Entry) *logrus.Entry {
	if entry == nil {
		return Discard()
	}
	return entry
}
