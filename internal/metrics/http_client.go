package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goodnatureofminers/shielded-bridge-watcher/internal/shielded/model"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http_client",
		Name:      "requests_total",
		Help:      "Count of outgoing HTTP calls to the decryptor and the backend.",
	}, []string{"service", "operation", "network", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http_client",
		Name:      "request_duration_seconds",
		Help:      "Duration of outgoing HTTP calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"service", "operation", "network", "status"})
)

// HTTPClient tracks calls made to one remote service.
type HTTPClient struct {
	service string
	network model.Network
}

func NewHTTPClient(service string, network model.Network) *HTTPClient {
	if service == "" {
		service = "unknown"
	}
	if network == "" {
		network = "unknown"
	}
	return &HTTPClient{service: service, network: network}
}

// Observe records a single call outcome and duration.
func (m HTTPClient) Observe(operation string, err error, started time.Time) {
	status := statusOf(err)
	httpRequestsTotal.WithLabelValues(m.service, operation, string(m.network), status).Inc()
	httpRequestDuration.WithLabelValues(m.service, operation, string(m.network), status).Observe(time.Since(started).Seconds())
}
