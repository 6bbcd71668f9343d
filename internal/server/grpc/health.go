// Package grpcserver serves the gRPC health protocol for the typing-trainer backend.
package grpcserver

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/sakhatype/internal/repository"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "sakhatype"

// Health flips serving status from periodic store pings.
type Health struct {
	hs       *health.Server
	store    repository.Pinger
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

// NewHealth starts in NOT_SERVING until the first successful probe.
func NewHealth(store repository.Pinger, interval time.Duration, log *zap.Logger) *Health {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	timeout := interval / 2
	if timeout <= 0 || timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &Health{hs: hs, store: store, interval: interval, timeout: timeout, log: log}
}

// Server returns the underlying health service implementation.
func (h *Health) Server() *health.Server { return h.hs }

// Probe pings the store once and records the result.
func (h *Health) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("store probe failed", zap.Error(err))
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", st)
	h.hs.SetServingStatus(ServiceName, st)
	return st
}

// Run probes immediately and then every interval until ctx is done.
// On exit all statuses are set to NOT_SERVING.
func (h *Health) Run(ctx context.Context) {
	h.Probe(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			h.Probe(ctx)
		}
	}
}

// NewServer builds a gRPC server with logging and recovery interceptors and
// registers the health service. Reflection is for local debugging.
func NewServer(log *zap.Logger, h *Health, withReflection bool, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
		grpc.ChainStreamInterceptor(
			RecoverStream(log),
			LoggingStream(log),
		),
	)
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.Server())
	if withReflection {
		reflection.Register(s)
	}
	return s
}
