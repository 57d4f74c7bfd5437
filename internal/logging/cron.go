package logging

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type cronLogger struct {
	sugar *zap.SugaredLogger
}

// CronLogger routes the scheduler's messages into logger.
func CronLogger(logger *zap.Logger) cron.Logger {
	return cronLogger{sugar: logger.With(zap.String("stage", "schedule")).Sugar()}
}

// Info is used for routine scheduler events, which are debug noise here.
func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}
