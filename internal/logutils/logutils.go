package logutils

import (
	"github.com/sirupsen/logrus"
)

// Log is the shared application logger. InitLogger must run before use.
var Log = logrus.New()

func InitLogger(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		Log.Warnf("Invalid log level %q, defaulting to info", level)
		parsed = logrus.InfoLevel
	}
	Log.SetLevel(parsed)
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Log.Debugf("Log level set to %s", parsed)
}
