// SPDX-License-Identifier: BSD-3-Clause

// Package nodemgr runs the node manager device layer as a service: it
// owns a devicemanager.DeviceManager running the sensor, reading, and
// knob pipeline on a tick, and exposes the device facade as NATS micro
// endpoints.
package nodemgr

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/u-bmc/nodemgr/pkg/clock"
	"github.com/u-bmc/nodemgr/pkg/devicemanager"
	"github.com/u-bmc/nodemgr/pkg/log"
	"github.com/u-bmc/nodemgr/pkg/peci"
	"github.com/u-bmc/nodemgr/pkg/provider"
	"github.com/u-bmc/nodemgr/pkg/telemetry"
	svc "github.com/u-bmc/nodemgr/service"
)

var _ svc.Service = (*Service)(nil)

// Service is the node manager's top-level daemon: it wires the file,
// accelerator, and GPIO providers into a concrete sensor/reading/knob
// set, drives the device manager's Tick on its own goroutine, and
// exposes the facade over NATS.
type Service struct {
	config *config
	clock  clock.Clock

	nc           *nats.Conn
	microService micro.Service
	manager      *devicemanager.DeviceManager

	logger *slog.Logger
	tracer trace.Tracer

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New returns a Service configured by opts, using defaults matching the
// reference platform's topology when not overridden.
func New(opts ...Option) *Service {
	cfg := &config{
		serviceName:           DefaultServiceName,
		serviceDescription:    DefaultServiceDescription,
		serviceVersion:        DefaultServiceVersion,
		tickInterval:          DefaultTickInterval,
		maxWorkers:            DefaultMaxWorkers,
		requestTimeout:        DefaultRequestTimeout,
		hwmonRoot:             DefaultHwmonRoot,
		peciDevicePath:        DefaultPECIDevicePath,
		gpioPrefix:            DefaultGPIOPrefix,
		acceleratorPathPrefix: DefaultAcceleratorPathPrefix,
		discoveryPeriod:       DefaultDiscoveryPeriod,
		cpuCount:              DefaultCPUCount,
		acceleratorCount:      DefaultAcceleratorCount,
		psuCount:              DefaultPSUCount,
		turboRatioDefault:     DefaultTurboRatioLimit,
		prochotDefault:        DefaultProchotRatio,
	}
	for _, opt := range opts {
		opt.apply(cfg)
	}

	return &Service{config: cfg, clock: clock.Real()}
}

// Name returns the NATS micro service name.
func (s *Service) Name() string {
	return s.config.serviceName
}

// Run connects to NATS over ipcConn, builds and installs the device
// pipeline, starts the provider discovery loops and the tick loop, and
// serves the façade until ctx is canceled.
func (s *Service) Run(ctx context.Context, ipcConn nats.InProcessConnProvider) error {
	s.tracer = otel.Tracer(s.config.serviceName)
	ctx, span := s.tracer.Start(ctx, "nodemgr.Run")
	defer span.End()

	s.logger = log.GetGlobalLogger().With("service", s.config.serviceName)

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrServiceAlreadyStarted
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	if err := s.config.Validate(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	nc, err := nats.Connect("", nats.InProcessServer(ipcConn))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrNATSConnectionFailed, err)
	}
	s.nc = nc
	defer nc.Drain() //nolint:errcheck

	manager, err := devicemanager.New(ctx, s.clock, s.config.maxWorkers)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrDeviceManagerInstallFailed, err)
	}
	s.manager = manager

	om := provider.NewNATSObjectManager(nc, s.config.requestTimeout)
	fileProvider := provider.NewFileProvider(s.config.hwmonRoot, provider.DefaultPathTemplates(), provider.DefaultKnobPathTemplates(), s.config.discoveryPeriod)
	accelProvider := provider.NewAcceleratorProvider(om, s.config.acceleratorPathPrefix, s.config.discoveryPeriod)
	accelProvider.OnMappingChange(func() {
		s.logger.WarnContext(ctx, "accelerator topology changed after install; sensors keep the mapping they were built against until the service restarts")
	})
	gpioProvider := provider.NewGPIOProvider(s.config.gpioPrefix)
	transport := peci.NewBus(s.config.peciDevicePath)

	plat, err := buildPlatform(ctx, s.clock, s.config, manager.Store(), fileProvider, accelProvider, gpioProvider, om, transport)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrDeviceManagerInstallFailed, err)
	}

	if err := manager.Install(ctx, plat.sensors, plat.readings, plat.knobs); err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrDeviceManagerInstallFailed, err)
	}

	go fileProvider.Run(ctx)
	go func() {
		if err := accelProvider.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "accelerator provider stopped", "error", err)
		}
	}()

	s.microService, err = micro.AddService(nc, micro.Config{
		Name:        s.config.serviceName,
		Description: s.config.serviceDescription,
		Version:     s.config.serviceVersion,
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("%w: %w", ErrMicroServiceCreationFailed, err)
	}

	if err := s.registerEndpoints(ctx); err != nil {
		span.RecordError(err)
		return err
	}

	go s.runTickLoop(ctx)

	s.logger.InfoContext(ctx, "node manager service started",
		"sensors", manager.SensorCount(),
		"knobs", manager.KnobCount(),
		"tick_interval", s.config.tickInterval)
	span.SetAttributes(
		attribute.String("service.name", s.config.serviceName),
		attribute.Int("sensors.count", manager.SensorCount()),
		attribute.Int("knobs.count", manager.KnobCount()),
	)

	<-ctx.Done()

	err = ctx.Err()
	shutdownCtx := context.WithoutCancel(ctx)
	s.logger.InfoContext(shutdownCtx, "shutting down node manager service")
	if shutdownErr := manager.Shutdown(shutdownCtx); shutdownErr != nil {
		s.logger.ErrorContext(shutdownCtx, "device manager shutdown", "error", shutdownErr)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return err
}

// runTickLoop drives the device manager's pipeline on its own goroutine,
// decoupled from the NATS request-handling goroutines.
func (s *Service) runTickLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.manager.Tick(ctx); err != nil {
				s.logger.ErrorContext(ctx, "device manager tick", "error", err)
			}
		}
	}
}

// createRequestHandler wraps handler with telemetry-context extraction
// and a request span.
func (s *Service) createRequestHandler(parentCtx context.Context, handler func(context.Context, micro.Request)) micro.HandlerFunc {
	return func(req micro.Request) {
		ctx := telemetry.GetCtxFromReq(req)
		ctx = context.WithoutCancel(ctx)

		if s.tracer != nil {
			var span trace.Span
			ctx, span = s.tracer.Start(ctx, "nodemgr.handleRequest")
			span.SetAttributes(
				attribute.String("subject", req.Subject()),
				attribute.String("service", s.config.serviceName),
			)
			defer span.End()
		}

		handler(ctx, req) //nolint:contextcheck
	}
}
