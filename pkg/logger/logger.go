package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the JSON logger used across the service. Unknown levels fall
// back to info.
func New(level string) *logrus.Logger {
	return NewWithOutput(level, os.Stdout)
}

func NewWithOutput(level string, out io.Writer) *logrus.Logger {
	logg := logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logg.SetLevel(lvl)
	return logg
}

// Discard returns a logger that drops everything, for tests.
func Discard() *logrus.Logger {
	return NewWithOutput("panic", io.Discard)
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
