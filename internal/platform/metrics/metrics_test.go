package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type stubFailOpen int64

func (s stubFailOpen) FailOpenCount() int64 { return int64(s) }

type stubDelivery struct {
	sent, failed, dropped int64
}

func (s stubDelivery) Stats() (int64, int64, int64) { return s.sent, s.failed, s.dropped }

func TestNewRegistry_ExposesCounters(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(stubFailOpen(3), stubDelivery{sent: 7, failed: 2, dropped: 1})

	expected := `
# HELP resignation_holiday_check_fail_open_total Holiday checks that failed and let the submission through.
# TYPE resignation_holiday_check_fail_open_total counter
resignation_holiday_check_fail_open_total 3
# HELP resignation_notifications_dropped_total Notifications dropped before delivery.
# TYPE resignation_notifications_dropped_total counter
resignation_notifications_dropped_total 1
# HELP resignation_notifications_failed_total Notifications whose delivery failed.
# TYPE resignation_notifications_failed_total counter
resignation_notifications_failed_total 2
# HELP resignation_notifications_sent_total Notifications delivered.
# TYPE resignation_notifications_sent_total counter
resignation_notifications_sent_total 7
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"resignation_holiday_check_fail_open_total",
		"resignation_notifications_sent_total",
		"resignation_notifications_failed_total",
		"resignation_notifications_dropped_total",
	); err != nil {
		t.Fatalf("unexpected metrics: %v", err)
	}
}

func TestUnaryServerInterceptor_CountsByCode(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	requests := NewRequestCounter(reg)
	interceptor := UnaryServerInterceptor(requests)
	info := &grpc.UnaryServerInfo{FullMethod: "/resignation.v1.ResignationService/ApproveResignation"}

	ok := func(context.Context, any) (any, error) { return "ok", nil }
	denied := func(context.Context, any) (any, error) { return nil, status.Error(codes.FailedPrecondition, "decided") }

	if _, err := interceptor(context.Background(), nil, info, ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := interceptor(context.Background(), nil, info, denied); status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("interceptor must pass the handler error through, got %v", err)
	}
	_, _ = interceptor(context.Background(), nil, info, denied)

	if got := testutil.ToFloat64(requests.WithLabelValues(info.FullMethod, "OK")); got != 1 {
		t.Fatalf("expected 1 OK request, got %v", got)
	}
	if got := testutil.ToFloat64(requests.WithLabelValues(info.FullMethod, "FailedPrecondition")); got != 2 {
		t.Fatalf("expected 2 FailedPrecondition requests, got %v", got)
	}
}

func TestServer_ServesMetrics(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", NewRegistry(stubFailOpen(1), nil), nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "resignation_holiday_check_fail_open_total 1") {
		t.Fatalf("fail-open counter missing from output:\n%s", rec.Body.String())
	}
}

func TestServer_StopsOnCancel(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := NewServer(lis.Addr().String(), NewRegistry(nil, stubDelivery{sent: 4}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	resp, err := http.Get("http://" + lis.Addr().String() + "/metrics")
	if err != nil {
		cancel()
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "resignation_notifications_sent_total 4") {
		t.Fatalf("sent counter missing from output:\n%s", body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
