// SPDX-License-Identifier: BSD-3-Clause

// Command nodemgr runs the node manager device layer as a standalone
// process: an embedded NATS server for the in-process bus, and the
// device manager service itself, started once the bus is ready.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/u-bmc/nodemgr/pkg/log"
	"github.com/u-bmc/nodemgr/pkg/telemetry"
	"github.com/u-bmc/nodemgr/service/ipc"
	"github.com/u-bmc/nodemgr/service/nodemgr"
)

func main() {
	logger := log.GetGlobalLogger()
	slog.SetDefault(logger)
	log.RedirectStdLog(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("nodemgr exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	logger.Info("starting nodemgr")

	telemetryOpts := []telemetry.Option{telemetry.WithServiceName("nodemgr")}
	if endpoint := envString("NODEMGR_OTLP_ENDPOINT", ""); endpoint != "" {
		telemetryOpts = append(telemetryOpts, telemetry.WithOTLPgRPC(endpoint), telemetry.WithInsecure(true))
	}
	telemetryShutdown, err := telemetry.Setup(ctx, telemetryOpts...)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	bus := ipc.New(
		ipc.WithServerName("nodemgr-ipc"),
		ipc.WithStartupTimeout(5*time.Second),
	)

	device := nodemgr.New(
		nodemgr.WithTickInterval(envDuration("NODEMGR_TICK_INTERVAL", nodemgr.DefaultTickInterval)),
		nodemgr.WithHwmonRoot(envString("NODEMGR_HWMON_ROOT", nodemgr.DefaultHwmonRoot)),
		nodemgr.WithPECIDevicePath(envString("NODEMGR_PECI_DEVICE", nodemgr.DefaultPECIDevicePath)),
		nodemgr.WithGPIOPrefix(envString("NODEMGR_GPIO_PREFIX", nodemgr.DefaultGPIOPrefix)),
		nodemgr.WithTopology(
			envInt("NODEMGR_CPU_COUNT", nodemgr.DefaultCPUCount),
			envInt("NODEMGR_ACCELERATOR_COUNT", nodemgr.DefaultAcceleratorCount),
			envInt("NODEMGR_PSU_COUNT", nodemgr.DefaultPSUCount),
		),
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return bus.Run(groupCtx, nil)
	})

	group.Go(func() error {
		conn := bus.GetConnProvider()
		return device.Run(groupCtx, conn)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var n int
	if _, err := fmt.Sscan(v, &n); err != nil {
		return fallback
	}
	return n
}
