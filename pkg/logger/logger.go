package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var Log = newLogger()

func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      true,
		DisableTimestamp: true,
	})

	if os.Getenv("DEBUG") == "1" {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// Silence routes all log output to io.Discard. Used by --quiet and tests.
func Silence() {
	Log.SetOutput(io.Discard)
}

// SetVerbose switches the shared logger to debug level.
func SetVerbose(v bool) {
	if v {
		Log.SetLevel(logrus.DebugLevel)
	}
}
