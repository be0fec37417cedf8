// Package logging re-exports the logger setup used by the Coze runtime for SDK consumers.
package logging

import (
	"context"

	internallogging "github.com/router-for-me/CozeSDK/internal/logging"
	log "github.com/sirupsen/logrus"
)

// LogFormatter renders "[time] [request_id] [level] [file:line] message" lines.
type LogFormatter = internallogging.LogFormatter

// SetupBaseLogger installs LogFormatter on the standard logrus logger.
func SetupBaseLogger() { internallogging.SetupBaseLogger() }

// ConfigureLogOutput switches between a rotating log file and stdout.
func ConfigureLogOutput(loggingToFile bool) error {
	return internallogging.ConfigureLogOutput(loggingToFile)
}

// ContextWithLogID attaches a Coze log id to ctx.
func ContextWithLogID(ctx context.Context, logID string) context.Context {
	return internallogging.ContextWithLogID(ctx, logID)
}

// WithLogID returns an entry tagged with the log id carried by ctx.
func WithLogID(ctx context.Context) *log.Entry { return internallogging.WithLogID(ctx) }
