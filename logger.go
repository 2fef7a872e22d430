package offscreen

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

type loggerHolder struct {
	logger logrus.FieldLogger
}

var currentLogger atomic.Value

func init() {
	currentLogger.Store(loggerHolder{logrus.StandardLogger()})
}

// SetLogger replaces the logger used by the package.
// Passing nil restores the logrus standard logger.
func SetLogger(logger logrus.FieldLogger) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	currentLogger.Store(loggerHolder{logger})
}

func log() logrus.FieldLogger {
	return currentLogger.Load().(loggerHolder).logger
}
