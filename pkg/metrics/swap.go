package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Latency of the swap suggestion HTTP handler
	SwapSuggestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "swap_suggest_latency_seconds",
		Help:    "Latency of the swap suggestion handler",
		Buckets: prometheus.DefBuckets,
	})

	// Total number of swap suggestion requests served
	SwapSuggestRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swap_suggest_requests_total",
		Help: "Total number of swap suggestion requests",
	})
)

func Init() {
	prometheus.MustRegister(
		SwapSuggestLatency,
		SwapSuggestRequests,
	)
}
