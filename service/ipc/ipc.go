// SPDX-License-Identifier: BSD-3-Clause

package ipc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/u-bmc/nodemgr/pkg/log"
	svc "github.com/u-bmc/nodemgr/service"
)

var _ svc.Service = (*IPC)(nil)

// IPC runs an embedded NATS server and is always the first service
// started in a process that hosts nodemgr.Service, since the device
// layer's façade needs a ready in-process connection provider.
type IPC struct {
	config *config
	server *server.Server
	logger *slog.Logger
	tracer trace.Tracer
}

// New returns an IPC service configured by opts.
func New(opts ...Option) *IPC {
	cfg := &config{
		serviceName:        DefaultServiceName,
		serviceDescription: DefaultServiceDescription,
		serviceVersion:     DefaultServiceVersion,
		serverName:         DefaultServerName,
		storeDir:           DefaultStoreDir,
		startupTimeout:     DefaultStartupTimeout,
		shutdownTimeout:    DefaultShutdownTimeout,
		maxPayload:         DefaultMaxPayload,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}
	return &IPC{config: cfg}
}

func (s *IPC) Name() string {
	return s.config.serviceName
}

// Run starts the embedded NATS server and blocks until ctx is canceled.
// ipcConn must be nil: IPC is the provider other services obtain
// connections from via GetConnProvider, not a consumer of one.
func (s *IPC) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)
	ctx, span := s.tracer.Start(ctx, "ipc.Run")
	defer span.End()

	s.logger = log.GetGlobalLogger().With("service", s.config.serviceName)

	if ipcConn != nil {
		err := fmt.Errorf("ipc service provides the bus, it does not consume one")
		span.RecordError(err)
		return err
	}

	if err := s.config.Validate(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	ns, err := server.NewServer(s.config.toServerOptions())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrServerCreationFailed, err)
	}
	s.server = ns
	s.server.SetLoggerV2(log.NewNATSLogger(s.logger), s.config.debug, s.config.trace, false)

	s.logger.InfoContext(ctx, "starting embedded nats server", "server_name", s.config.serverName)
	s.server.Start()

	if !s.server.ReadyForConnections(s.config.startupTimeout) {
		s.server.Shutdown()
		err := fmt.Errorf("%w: server not ready within %v", ErrServerTimeout, s.config.startupTimeout)
		span.RecordError(err)
		return err
	}

	s.logger.InfoContext(ctx, "ipc server ready", "server_id", s.server.ID())
	span.SetAttributes(
		attribute.String("service.name", s.config.serviceName),
		attribute.String("server.id", s.server.ID()),
		attribute.Bool("jetstream.enabled", s.config.enableJetStream),
	)

	<-ctx.Done()
	return s.shutdown(ctx)
}

// GetConnProvider returns a provider other services pass to
// nats.InProcessServer, blocking up to the configured startup timeout
// for the server to exist if called before Run has set it up.
func (s *IPC) GetConnProvider() *ConnProvider {
	deadline := time.Now().Add(s.config.startupTimeout)
	for s.server == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return &ConnProvider{server: s.server}
}

func (s *IPC) shutdown(ctx context.Context) error {
	err := ctx.Err()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.shutdownTimeout)
	defer cancel()

	s.logger.InfoContext(shutdownCtx, "shutting down ipc server")
	if s.server != nil {
		s.server.LameDuckShutdown()

		done := make(chan struct{})
		go func() {
			defer close(done)
			s.server.Shutdown()
		}()

		select {
		case <-done:
			s.logger.InfoContext(shutdownCtx, "ipc server shutdown complete")
		case <-shutdownCtx.Done():
			s.logger.WarnContext(shutdownCtx, "ipc server shutdown timed out")
		}
	}

	return err
}
