package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "resignation"

// FailOpenCounter は祝日判定を fail-open で通過させた回数を返します。
type FailOpenCounter interface {
	FailOpenCount() int64
}

// DeliveryStats は通知の送信結果の累計を返します。
type DeliveryStats interface {
	Stats() (sent, failed, dropped int64)
}

// NewRegistry はランタイム情報と業務カウンタを登録したレジストリを生成します。
func NewRegistry(validator FailOpenCounter, delivery DeliveryStats) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if validator != nil {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "holiday",
			Name:      "check_fail_open_total",
			Help:      "Holiday checks that failed and let the submission through.",
		}, func() float64 { return float64(validator.FailOpenCount()) }))
	}

	if delivery != nil {
		reg.MustRegister(
			notificationCounter("sent", "Notifications delivered.", func(sent, _, _ int64) int64 { return sent }, delivery),
			notificationCounter("failed", "Notifications whose delivery failed.", func(_, failed, _ int64) int64 { return failed }, delivery),
			notificationCounter("dropped", "Notifications dropped before delivery.", func(_, _, dropped int64) int64 { return dropped }, delivery),
		)
	}

	return reg
}

func notificationCounter(name, help string, pick func(sent, failed, dropped int64) int64, delivery DeliveryStats) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      name + "_total",
		Help:      help,
	}, func() float64 { return float64(pick(delivery.Stats())) })
}

// NewRequestCounter は gRPC メソッドと結果コードごとのリクエスト数を登録します。
func NewRequestCounter(reg prometheus.Registerer) *prometheus.CounterVec {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "grpc",
		Name:      "requests_total",
		Help:      "Unary gRPC requests by method and status code.",
	}, []string{"method", "code"})
	reg.MustRegister(requests)
	return requests
}

// UnaryServerInterceptor は処理結果を requests に記録します。
func UnaryServerInterceptor(requests *prometheus.CounterVec) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		requests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
