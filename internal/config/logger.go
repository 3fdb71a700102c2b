package config

import (
	"context"

	logger_lib "github.com/s21platform/logger-lib"
)

type nopLogger struct{}

func (nopLogger) AddFuncName(string) {}
func (nopLogger) Info(string)        {}
func (nopLogger) Error(string)       {}
func (nopLogger) Warn(string)        {}

// LoggerFromContext returns the logger stored under KeyLogger, or a logger
// that discards everything when ctx carries none.
func LoggerFromContext(ctx context.Context) logger_lib.LoggerInterface {
	if logger := logger_lib.FromContext(ctx, KeyLogger); logger != nil {
		return logger
	}
	return nopLogger{}
}
