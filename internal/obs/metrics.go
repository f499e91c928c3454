package obs

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics are the request collectors for the API and worker routers.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// NewHTTPMetrics registers the request collectors under namespace. Latency is
// observed in milliseconds; nil buckets use the defaults. A second call with
// the same registry returns the collectors already registered.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = defaultLatencyBuckets
	}
	buckets = slices.Sorted(slices.Values(buckets))
	return &HTTPMetrics{
		ReqTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"})),
		ReqDur: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"})),
		InFlight: register[prometheus.Gauge](reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being served.",
		})),
	}
}

// ParseBucketsCSV reads OBS_HTTP_BUCKETS_MS style values such as "10,50,250".
// Non-positive and malformed entries are skipped.
func ParseBucketsCSV(csv string) []float64 {
	var out []float64
	for _, part := range strings.Split(csv, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err == nil && v > 0 {
			out = append(out, v)
		}
	}
	return out
}

// DurationMillis converts d for the millisecond histograms.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Billing counters. They stay nil until MustRegisterDomainMetrics runs; the
// helper functions below tolerate that so services work without a registry.
var (
	domainOnce sync.Once

	BillsCreatedTotal     *prometheus.CounterVec
	CheckoutRejectedTotal *prometheus.CounterVec
	PaymentsRecordedTotal *prometheus.CounterVec
	LowStockTotal         prometheus.Counter
	ReportCacheTotal      *prometheus.CounterVec
)

// MustRegisterDomainMetrics creates and registers the billing counters once
// per process.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
			return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace, Name: name, Help: help,
			}, labels))
		}
		BillsCreatedTotal = counterVec("bills_created_total", "Persisted bills by payment type and status.", "payment_type", "status")
		CheckoutRejectedTotal = counterVec("checkout_rejected_total", "Checkouts refused before anything was written, by reason.", "reason")
		PaymentsRecordedTotal = counterVec("payments_recorded_total", "Manual payments by method.", "method")
		ReportCacheTotal = counterVec("report_cache_total", "Sales report cache lookups by result.", "result")
		LowStockTotal = register[prometheus.Counter](reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "low_stock_total",
			Help:      "Low stock alerts handled by the worker.",
		}))
	})
}

func BillCreated(paymentType, status string) {
	if BillsCreatedTotal != nil {
		BillsCreatedTotal.WithLabelValues(paymentType, status).Inc()
	}
}

func CheckoutRejected(reason string) {
	if CheckoutRejectedTotal != nil {
		CheckoutRejectedTotal.WithLabelValues(reason).Inc()
	}
}

func PaymentRecorded(method string) {
	if PaymentsRecordedTotal != nil {
		PaymentsRecordedTotal.WithLabelValues(method).Inc()
	}
}

func LowStock() {
	if LowStockTotal != nil {
		LowStockTotal.Inc()
	}
}

// ReportCache records "hit" or "miss".
func ReportCache(result string) {
	if ReportCacheTotal != nil {
		ReportCacheTotal.WithLabelValues(result).Inc()
	}
}

// register adds c to reg, or returns the equal collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(T); ok {
			return existing
		}
	}
	panic(fmt.Errorf("register metric: %w", err))
}
