// SPDX-License-Identifier: BSD-3-Clause

// Package asyncexec runs blocking I/O (hwmon file access, PECI bus
// transactions, discovery scans) off the primary tick goroutine and
// delivers results back to it without blocking.
//
// At most one task is ever pending per key: scheduling a task for a
// key that already has one in flight is a no-op, not a queue, so a
// slow backend sheds stale work instead of piling it up.
package asyncexec
