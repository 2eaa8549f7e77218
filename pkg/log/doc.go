// SPDX-License-Identifier: BSD-3-Clause

// Package log builds the node manager's structured logger: log/slog as
// the façade, fanned out through samber/slog-multi to a zerolog console
// writer and the OpenTelemetry log bridge. Components receive a
// *slog.Logger at construction and annotate it with their own fields:
//
//	logger := log.GetGlobalLogger().With("service", "nodemgr")
//	logger.InfoContext(ctx, "node manager service started", "sensors", n)
//
// The package also adapts slog to interfaces third parties expect:
// NewNATSLogger satisfies the embedded NATS server's Logger, and
// NewStdLoggerAt/RedirectStdLog cover libraries that only take the
// standard library's log.Logger.
package log
