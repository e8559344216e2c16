package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Akanksha-Dhamdhere/mobile-store/pkg/storefront/application/service"
)

const namespace = "storefront"

var _ service.CheckoutObserver = &Registry{}

type Registry struct {
	reg *prometheus.Registry

	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	Checkouts            *prometheus.CounterVec
	CheckoutLatencySec   prometheus.Histogram
	BillFailures         prometheus.Counter
	CompensatedCheckouts prometheus.Counter
	CompensatedLines     prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"outcome"})
	checkoutLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Buckets:   prometheus.DefBuckets,
	})
	billFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bill_generation_failures_total",
		Help:      "Orders placed without a bill.",
	})
	compensated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_compensations_total",
	})
	compensatedLines := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_compensated_lines_total",
	})

	r.MustRegister(
		requests, latency,
		checkouts, checkoutLatency, billFailures, compensated, compensatedLines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:                  r,
		Requests:             requests,
		LatencyMS:            latency,
		Checkouts:            checkouts,
		CheckoutLatencySec:   checkoutLatency,
		BillFailures:         billFailures,
		CompensatedCheckouts: compensated,
		CompensatedLines:     compensatedLines,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveCheckout(outcome string, elapsed time.Duration) {
	r.Checkouts.WithLabelValues(outcome).Inc()
	r.CheckoutLatencySec.Observe(elapsed.Seconds())
}

func (r *Registry) BillGenerationFailed() {
	r.BillFailures.Inc()
}

func (r *Registry) CompensationApplied(lines int) {
	r.CompensatedCheckouts.Inc()
	r.CompensatedLines.Add(float64(lines))
}

func (r *Registry) ObserveRequest(handler string, status int, elapsed time.Duration) {
	r.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	r.LatencyMS.WithLabelValues(handler).Observe(float64(elapsed.Microseconds()) / 1000)
}
