package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer serves grpc.health.v1. The empty service name reports overall
// health; named services can be driven by probes.
type HealthServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	h := &HealthServer{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
	}
	grpc_health_v1.RegisterHealthServer(h.grpc, h.health)
	h.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	return h
}

// Serve blocks until Stop is called or lis fails.
func (h *HealthServer) Serve(lis net.Listener) error {
	h.logger.Info("grpc health listening", "addr", lis.Addr().String())
	return h.grpc.Serve(lis)
}

// Probe runs check every interval until ctx is done and publishes the result
// as the status of service.
func (h *HealthServer) Probe(ctx context.Context, service string, interval time.Duration, check func(context.Context) error) {
	set := func() {
		status := grpc_health_v1.HealthCheckResponse_SERVING
		if err := check(ctx); err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			h.logger.Warn("health.probe.failed", "service", service, "err", err)
		}
		h.health.SetServingStatus(service, status)
	}
	set()
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				set()
			}
		}
	}()
}

// Stop flips every service to NOT_SERVING and drains in-flight checks.
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
