package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// L returns the shared logger, initializing it with defaults on first use.
func L() *logrus.Logger {
	once.Do(func() {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		log.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))
	})
	return log
}

// SetLevel adjusts the shared logger level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	L().SetLevel(parseLevel(level))
}

// SetOutput redirects log output, used by tests to silence the logger.
func SetOutput(w io.Writer) {
	L().SetOutput(w)
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
