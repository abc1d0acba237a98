package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// Client side

	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_client_token_refreshes_total",
		Help: "Token refresh calls issued by the client, by result",
	}, []string{"result"})

	RequestRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_client_request_retries_total",
		Help: "Requests re-issued after a 401, by final status class",
	}, []string{"status"})

	// Server side

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postboard_http_requests_total",
		Help: "HTTP requests handled by the API server",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postboard_http_request_duration_seconds",
		Help:    "Time spent handling API requests",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 12), // 1ms to ~2s
	}, []string{"method", "route"})

	RevokedTokensPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postboard_revoked_tokens_pruned_total",
		Help: "Expired revoked refresh tokens removed by the prune job",
	})
)

// StatusClass buckets an HTTP status code into "2xx", "4xx" and so on
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "error"
	}
}

// ClientStats is what the client counters have recorded in this process
type ClientStats struct {
	Refreshes       float64
	RefreshFailures float64
	Retries         float64
}

// Client reads the client-side counters. The CLI has no scrape endpoint, so
// this is how a run reports them.
func Client() ClientStats {
	return ClientStats{
		Refreshes:       sum(TokenRefreshes.WithLabelValues("success")),
		RefreshFailures: sum(TokenRefreshes.WithLabelValues("failure")),
		Retries:         sum(RequestRetries),
	}
}

// sum adds up every counter series c currently holds
func sum(c prometheus.Collector) float64 {
	ch := make(chan prometheus.Metric)
	go func() {
		c.Collect(ch)
		close(ch)
	}()

	var total float64
	for m := range ch {
		var pb dto.Metric
		if err := m.Write(&pb); err != nil {
			continue
		}
		total += pb.GetCounter().GetValue()
	}
	return total
}
