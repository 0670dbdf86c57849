// Package logging constructs the process-wide zap logger and provides
// helpers for keeping credentials and oversized SQL out of log output.
package logging

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a zap logger appropriate for the given environment.
// "local" and "dev" get human-readable development output at debug level;
// anything else gets production JSON output at info level.
func New(env string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	switch env {
	case "local", "dev", "development":
		logger, err = zap.NewDevelopment()
	default:
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger, nil
}
