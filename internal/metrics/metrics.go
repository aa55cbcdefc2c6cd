// Package metrics holds the Prometheus collectors of the engine. Collectors
// are registered on a registry owned by the Registry value, never on the
// process-wide default, so every server and test gets its own set.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/spanfetch"
)

// Request result labels.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultPermanent = "permanent"
	ResultCancelled = "cancelled"
)

// Registry holds all collectors of the engine.
type Registry struct {
	reg *prometheus.Registry

	ProviderRequests    *prometheus.CounterVec
	SpanRetries         *prometheus.CounterVec
	SpanSplits          *prometheus.CounterVec
	Compositions        *prometheus.CounterVec
	CompositionDuration *prometheus.HistogramVec
	AdjustmentsApplied  prometheus.Counter
}

// New creates a registry with every engine collector plus the Go runtime
// and process collectors.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		ProviderRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjusted_price_provider_requests_total",
				Help: "Upstream requests by provider, dataset and result",
			},
			[]string{"provider", "dataset", "result"},
		),

		SpanRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjusted_price_span_retries_total",
				Help: "Span requests repeated after a transient failure",
			},
			[]string{"provider", "dataset"},
		),

		SpanSplits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjusted_price_span_splits_total",
				Help: "Spans bisected after a span-related failure",
			},
			[]string{"provider", "dataset"},
		),

		Compositions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adjusted_price_compositions_total",
				Help: "Compositions by price source and result",
			},
			[]string{"price_source", "result"},
		),

		CompositionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adjusted_price_composition_duration_seconds",
				Help:    "Wall time of one composition",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
			},
			[]string{"result"},
		),

		AdjustmentsApplied: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adjusted_price_adjustments_applied_total",
				Help: "Corporate-action adjustments applied to price series",
			},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.ProviderRequests,
		r.SpanRetries,
		r.SpanSplits,
		r.Compositions,
		r.CompositionDuration,
		r.AdjustmentsApplied,
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

var _ spanfetch.Observer = (*Registry)(nil)

// ObserveRequest implements spanfetch.Observer.
func (r *Registry) ObserveRequest(provider, dataset string, err error) {
	r.ProviderRequests.WithLabelValues(provider, dataset, requestResult(err)).Inc()
}

// ObserveRetry implements spanfetch.Observer.
func (r *Registry) ObserveRetry(provider, dataset string) {
	r.SpanRetries.WithLabelValues(provider, dataset).Inc()
}

// ObserveSplit implements spanfetch.Observer.
func (r *Registry) ObserveSplit(provider, dataset string) {
	r.SpanSplits.WithLabelValues(provider, dataset).Inc()
}

// ObserveComposition records one finished composition.
func (r *Registry) ObserveComposition(priceSource string, applied int, err error, d time.Duration) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	if priceSource == "" {
		priceSource = "none"
	}
	r.Compositions.WithLabelValues(priceSource, result).Inc()
	r.CompositionDuration.WithLabelValues(result).Observe(d.Seconds())
	if applied > 0 {
		r.AdjustmentsApplied.Add(float64(applied))
	}
}

func requestResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCancelled
	case spanfetch.IsPermanent(err):
		return ResultPermanent
	default:
		return ResultError
	}
}
