package client

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fintrack_client_requests_total",
			Help: "API requests issued by the client.",
		}, []string{"method", "path", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fintrack_client_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

func (m *metrics) transport(next http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {

		start := time.Now()
		resp, err := next.RoundTrip(r)

		path := metricPath(r.URL.Path)
		m.duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())

		code := "error"
		if err == nil {
			code = strconv.Itoa(resp.StatusCode)
		}
		m.requests.WithLabelValues(r.Method, path, code).Inc()

		return resp, err
	})
}

// metricPath replaces numeric path segments with ":id" to bound label
// cardinality.
func metricPath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
