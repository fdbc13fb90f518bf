package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketplace"

// Settlement paths and outcomes used as label values.
const (
	PathDirect  = "direct"
	PathBalance = "balance"
	PathOffer   = "offer"

	OutcomeSuccess           = "success"
	OutcomeConflict          = "conflict"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeError             = "error"
)

// MetricsManager holds the marketplace Prometheus collectors.
type MetricsManager struct {
	Registry         *prometheus.Registry
	ItemsListedTotal prometheus.Counter
	SettlementsTotal *prometheus.CounterVec
	OffersTotal      *prometheus.CounterVec
	MessagesSent     prometheus.Counter
	HTTPLatency      *prometheus.HistogramVec
	HTTPErrorsTotal  *prometheus.CounterVec
}

func NewMetricsManager() *MetricsManager {
	registry := prometheus.NewRegistry()

	itemsListed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_listed_total",
		Help:      "Total number of items put up for sale.",
	})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Settlement attempts by path and outcome.",
	}, []string{"path", "outcome"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "offers_total",
		Help:      "Offer lifecycle events by outcome.",
	}, []string{"outcome"})
	messagesSent := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of direct messages sent.",
	})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	httpErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_errors_total",
		Help:      "HTTP responses with status >= 400 by status code.",
	}, []string{"status"})

	registry.MustRegister(
		itemsListed,
		settlements,
		offers,
		messagesSent,
		httpLatency,
		httpErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:         registry,
		ItemsListedTotal: itemsListed,
		SettlementsTotal: settlements,
		OffersTotal:      offers,
		MessagesSent:     messagesSent,
		HTTPLatency:      httpLatency,
		HTTPErrorsTotal:  httpErrors,
	}
}

func (m *MetricsManager) ObserveSettlement(path, outcome string) {
	if m == nil {
		return
	}
	m.SettlementsTotal.WithLabelValues(path, outcome).Inc()
}

func (m *MetricsManager) ObserveOffer(outcome string) {
	if m == nil {
		return
	}
	m.OffersTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsManager) IncItemsListed() {
	if m == nil {
		return
	}
	m.ItemsListedTotal.Inc()
}

func (m *MetricsManager) IncMessagesSent() {
	if m == nil {
		return
	}
	m.MessagesSent.Inc()
}

// ObserveHTTP records one served request. route is the matched pattern, not
// the raw path.
func (m *MetricsManager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPLatency.WithLabelValues(route, method).Observe(elapsed.Seconds())
	if status >= http.StatusBadRequest {
		m.HTTPErrorsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
	}
}

// NewMetricsServer builds the HTTP server exposing /metrics. It returns nil
// when port is empty.
func NewMetricsServer(port string, log logger.Logger, registry *prometheus.Registry) *http.Server {
	if port == "" {
		log.Info("metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	log.Infof("metrics server configured on :%s/metrics", port)
	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
