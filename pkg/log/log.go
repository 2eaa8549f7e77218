// SPDX-License-Identifier: BSD-3-Clause

package log

import (
	"log/slog"

	"github.com/rs/zerolog"
	slogmulti "github.com/samber/slog-multi"
	slogzerolog "github.com/samber/slog-zerolog/v2"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
)

// GetGlobalLogger returns the node manager's process logger: an
// slog.Logger fanned out to a zerolog console writer (human-readable,
// timestamped, debug level) and to the global OpenTelemetry log
// provider so records carry trace context off the BMC when a collector
// is configured.
//
// The otelslog handler resolves the logger provider at handle time, so
// calling this before telemetry.Setup is safe; records emitted before
// setup simply go nowhere but the console.
func GetGlobalLogger() *slog.Logger {
	zeroLogger := zerolog.
		New(zerolog.NewConsoleWriter()).
		With().
		Timestamp().
		Logger()

	otelHandler := otelslog.NewHandler("nodemgr", otelslog.WithLoggerProvider(global.GetLoggerProvider()))

	return slog.New(slogmulti.Fanout(
		slogzerolog.Option{Level: slog.LevelDebug, Logger: &zeroLogger}.NewZerologHandler(),
		otelHandler,
	))
}
