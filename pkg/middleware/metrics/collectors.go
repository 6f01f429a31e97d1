// middleware/metrics/collectors.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	dispatchSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rpc_dispatch_seconds",
			Help:    "rpc dispatch latency.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30},
		},
	)

	totalRPCCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_rpc_calls", Help: "rpc calls by method and status"},
		[]string{"method", "status"},
	)

	totalHttpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests", Help: "http requests by code, and method"},
		[]string{"code", "method"},
	)

	totalHttpRequestsToUri = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "total_http_requests_to_uri", Help: "http requests to uri"},
		[]string{"code", "uri", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		dispatchSeconds,
		totalRPCCalls,
		totalHttpRequests,
		totalHttpRequestsToUri,
	)
}
