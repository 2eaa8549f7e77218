// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

const (
	DefaultServiceName        = "ipc"
	DefaultServiceDescription = "in-process NATS message bus"
	DefaultServiceVersion     = "1.0.0"
	DefaultServerName         = "nodemgr-ipc"
	DefaultStoreDir           = "/var/lib/nodemgr/ipc"
	DefaultStartupTimeout     = 5 * time.Second
	DefaultShutdownTimeout    = 5 * time.Second
	DefaultMaxPayload         = 1048576
)

// config holds IPC's construction-time settings, assembled through
// functional options the same way every other service package in this
// repository is configured.
type config struct {
	serviceName        string
	serviceDescription string
	serviceVersion     string
	serverName         string

	storeDir        string
	enableJetStream bool

	startupTimeout  time.Duration
	shutdownTimeout time.Duration
	maxPayload      int32
	debug           bool
	trace           bool
}

func (c *config) Validate() error {
	if c.serviceName == "" {
		return fmt.Errorf("%w: service name cannot be empty", ErrInvalidConfiguration)
	}
	if c.serverName == "" {
		return fmt.Errorf("%w: server name cannot be empty", ErrInvalidConfiguration)
	}
	if c.startupTimeout <= 0 {
		return fmt.Errorf("%w: startup timeout must be positive", ErrInvalidConfiguration)
	}
	return nil
}

// toServerOptions translates config into the nats-server options struct
// that server.NewServer consumes.
func (c *config) toServerOptions() *server.Options {
	return &server.Options{
		ServerName:            c.serverName,
		DontListen:            true,
		JetStream:             c.enableJetStream,
		StoreDir:              c.storeDir,
		MaxPayload:            c.maxPayload,
		Debug:                 c.debug,
		Trace:                 c.trace,
		NoSigs:                true,
		DisableShortFirstPing: true,
	}
}

// Option configures an IPC service at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithServiceName overrides the name the IPC service reports from Name
// and uses for its tracer and log records; the embedded server's own
// identity is set by WithServerName.
func WithServiceName(name string) Option {
	return optionFunc(func(c *config) { c.serviceName = name })
}

// WithServerName overrides the embedded NATS server's identity.
func WithServerName(name string) Option {
	return optionFunc(func(c *config) { c.serverName = name })
}

// WithJetStream enables JetStream persistence rooted at storeDir.
func WithJetStream(storeDir string) Option {
	return optionFunc(func(c *config) {
		c.enableJetStream = true
		c.storeDir = storeDir
	})
}

// WithStartupTimeout overrides how long Run waits for the server to
// become ready for connections.
func WithStartupTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) { c.startupTimeout = d })
}

// WithShutdownTimeout overrides how long the lame-duck shutdown is given
// to drain before the server is forced down.
func WithShutdownTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) { c.shutdownTimeout = d })
}

// WithMaxPayload overrides the maximum NATS message size.
func WithMaxPayload(n int32) Option {
	return optionFunc(func(c *config) { c.maxPayload = n })
}

// WithDebug enables the embedded server's debug log level.
func WithDebug(enabled bool) Option {
	return optionFunc(func(c *config) { c.debug = enabled })
}
