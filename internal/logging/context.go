// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys for logging.
type contextKey string

const (
	// callIDKey is the context key for engine call IDs.
	callIDKey contextKey = "call_id"

	// loggerKey is the context key for storing a logger instance.
	loggerKey contextKey = "logger"
)

// GenerateCallID creates a new unique call ID.
// Returns the first 8 characters of a UUID for log readability.
func GenerateCallID() string {
	return uuid.New().String()[:8]
}

// ContextWithCallID returns a new context carrying the given call ID.
func ContextWithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey, id)
}

// ContextWithNewCallID returns a context with a freshly generated call ID.
func ContextWithNewCallID(ctx context.Context) context.Context {
	return ContextWithCallID(ctx, GenerateCallID())
}

// CallIDFromContext retrieves the call ID from context.
// Returns empty string if not present.
func CallIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(callIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithLogger stores a logger in the context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext retrieves a logger from context.
// Returns the global logger if none is stored.
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(loggerKey).(zerolog.Logger); ok {
		return logger
	}
	return Logger()
}

// Ctx returns a logger with the context's call ID attached.
// This is the recommended way to log inside engine calls.
//
//	logging.Ctx(ctx).Info().Msg("aggregation served")
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := LoggerFromContext(ctx)
	if id := CallIDFromContext(ctx); id != "" {
		logger = logger.With().Str("call_id", id).Logger()
	}
	return &logger
}
