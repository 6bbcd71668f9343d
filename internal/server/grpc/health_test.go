package grpcserver

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type switchPinger struct {
	mu  sync.Mutex
	err error
}

func (p *switchPinger) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *switchPinger) set(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

func check(t *testing.T, h *Health, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := h.Server().Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealth_ProbeFlipsStatus(t *testing.T) {
	t.Parallel()
	p := &switchPinger{}
	h := NewHealth(p, time.Second, zaptest.NewLogger(t))

	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ""))

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Probe(context.Background()))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ""))
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, check(t, h, ServiceName))

	p.set(errors.New("connection refused"))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Probe(context.Background()))
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ServiceName))
}

func TestHealth_RunStopsOnCancel(t *testing.T) {
	t.Parallel()
	h := NewHealth(&switchPinger{}, 10*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return check(t, h, "") == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check(t, h, ""))
}

func TestNewServer_ServesHealthOverBufconn(t *testing.T) {
	t.Parallel()
	log := zaptest.NewLogger(t)
	h := NewHealth(&switchPinger{}, time.Second, log)
	h.Probe(context.Background())

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(log, h, true)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
