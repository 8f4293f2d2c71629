package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/shop-backend/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shop"

var (
	// Auth metrics

	MagicLinksIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "magic_links_issued_total",
		Help:      "Magic link tokens stored and handed to the notifier.",
	})

	MagicLinksThrottledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "magic_links_throttled_total",
		Help:      "Magic link requests dropped by the rate limiter.",
	})

	MagicLinkDeliveryFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "magic_link_delivery_failures_total",
		Help:      "Magic link emails the provider rejected.",
	})

	MagicLinkConsumeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "magic_link_consume_total",
		Help:      "Magic link consume attempts, by outcome.",
	}, []string{"outcome"})

	RefreshRotationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_rotations_total",
		Help:      "Refresh token rotations, by outcome.",
	}, []string{"outcome"})

	// Order metrics

	OrdersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders created at checkout.",
	})

	CheckoutRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_rejected_total",
		Help:      "Checkouts aborted before writing, by reason.",
	}, []string{"reason"})

	OrderTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Order status changes, by target status and actor.",
	}, []string{"to", "actor"})

	// Maintenance metrics

	MaintenanceRemovedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "maintenance_removed_total",
		Help:      "Rows or entries removed by maintenance jobs.",
	}, []string{"job"})

	MaintenanceRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "maintenance_run_duration_seconds",
		Help:      "Time taken for one maintenance job run.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		MagicLinksIssuedTotal,
		MagicLinksThrottledTotal,
		MagicLinkDeliveryFailuresTotal,
		MagicLinkConsumeTotal,
		RefreshRotationsTotal,
		OrdersPlacedTotal,
		CheckoutRejectedTotal,
		OrderTransitionsTotal,
		MaintenanceRemovedTotal,
		MaintenanceRunDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus liveness and readiness probes.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Readiness(r.Context()))
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, res health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	if res.Status != "up" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(res)
}
