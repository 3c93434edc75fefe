// internal/logging/logger.go
package logging

import (
	"go.uber.org/zap"
)

// New builds the process logger. Dev gets the console encoder, anything else
// gets production JSON.
func New(env string) *zap.SugaredLogger {
	var logger *zap.Logger
	var err error
	if env == "dev" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		// zap only fails on a bad config; fall back to a no-op rather than
		// taking the batch down.
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}
