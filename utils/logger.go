package utils

import (
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// NewLogger создает JSON-логгер с указанным уровнем.
// Неизвестный уровень заменяется на info.
func NewLogger(level string) *logrus.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// LogOperation логирует длительность и результат операции
func LogOperation(log logrus.FieldLogger, operation string, startTime time.Time, err error) {
	entry := log.WithFields(logrus.Fields{
		"operation":   operation,
		"duration_ms": time.Since(startTime).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("operation failed")
		return
	}
	entry.Info("operation completed")
}
