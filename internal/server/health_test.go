package server

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func TestHealthServer(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	h := NewHealthServer(nil)
	go func() { _ = h.Serve(lis) }()
	t.Cleanup(h.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	client := grpc_health_v1.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	check := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		t.Helper()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			t.Fatalf("Check(%q): %v", service, err)
		}
		return resp.GetStatus()
	}

	if got := check(""); got != grpc_health_v1.HealthCheckResponse_SERVING {
		t.Errorf("overall = %v", got)
	}

	var down atomic.Bool
	down.Store(true)
	probeCtx, stopProbe := context.WithCancel(ctx)
	defer stopProbe()
	h.Probe(probeCtx, "ledger", 10*time.Millisecond, func(context.Context) error {
		if down.Load() {
			return errors.New("connection refused")
		}
		return nil
	})
	if got := check("ledger"); got != grpc_health_v1.HealthCheckResponse_NOT_SERVING {
		t.Errorf("ledger = %v, want NOT_SERVING", got)
	}

	down.Store(false)
	deadline := time.Now().Add(2 * time.Second)
	for check("ledger") != grpc_health_v1.HealthCheckResponse_SERVING {
		if time.Now().After(deadline) {
			t.Fatal("ledger never recovered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
