package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pediatric-gfr-server/internal/domain"
)

// NewLogger builds a logrus logger from level and format settings. Unknown
// levels fall back to info; format "text" selects the text formatter.
func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	return logger
}

// LoggerFromConfig builds the server logger, honouring logging.output.
func LoggerFromConfig(cfg domain.LoggingConfig) *logrus.Logger {
	logger := NewLogger(cfg.Level, cfg.Format)
	logger.SetOutput(outputFor(cfg.Output))
	return logger
}

func outputFor(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "", "stdout":
		return os.Stdout
	}
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return os.Stderr
	}
	return f
}
