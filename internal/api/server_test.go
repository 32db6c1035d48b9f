package api

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/reconcile-timeline/internal/config"
)

type stubTimeline struct {
	dispatches int
}

func (s *stubTimeline) GetSeries(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"series": []any{}})
}

func (s *stubTimeline) Dispatch(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	s.dispatches++
	return in, nil
}

func (s *stubTimeline) GetFrame(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return &structpb.Struct{}, nil
}

func (s *stubTimeline) GetSummary(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return &structpb.Struct{}, nil
}

func startBufServer(t *testing.T, svc TimelineServer) (*Server, *grpc.ClientConn, <-chan error) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, svc)
	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return srv, conn, done
}

func TestServerServesTimelineAndHealth(t *testing.T) {
	stub := &stubTimeline{}
	srv, conn, done := startBufServer(t, stub)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.GetStatus())
	}

	in, _ := structpb.NewStruct(map[string]any{"input": "reset"})
	out, err := NewTimelineClient(conn).Dispatch(ctx, in)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if out.GetFields()["input"].GetStringValue() != "reset" || stub.dispatches != 1 {
		t.Fatalf("unexpected dispatch echo %v (calls %d)", out, stub.dispatches)
	}

	srv.Shutdown(ctx)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestServerStartWithoutListener(t *testing.T) {
	var srv Server
	if err := srv.Start(); err == nil {
		t.Fatalf("expected error for uninitialised server")
	}
}
