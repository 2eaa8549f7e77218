// SPDX-License-Identifier: BSD-3-Clause

package log

import (
	"log"
	"log/slog"
)

// NewStdLoggerAt wraps logger as a standard library log.Logger that
// records everything at level, for libraries that only accept the
// stdlib interface.
func NewStdLoggerAt(logger *slog.Logger, level slog.Level) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), level)
}

// RedirectStdLog routes the standard library log package through l at
// Info level so stray stdlib logging shares the structured fan-out.
func RedirectStdLog(l *slog.Logger) {
	log.SetFlags(0)
	log.SetPrefix("")
	log.SetOutput(NewStdLoggerAt(l, slog.LevelInfo).Writer())
}
