// Package metrics exposes prometheus collectors for quoting and the rate table.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interpreting_pricing"

// Metrics holds the collectors on a dedicated registry
type Metrics struct {
	Registry *prometheus.Registry

	QuotesTotal      *prometheus.CounterVec
	QuoteErrors      *prometheus.CounterVec
	DiscountPlans    *prometheus.CounterVec
	RateTableVersion prometheus.Gauge
	RateTableRows    prometheus.Gauge
}

// New registers every collector plus the go and process collectors
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		QuotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quotes computed, by outcome.",
		}, []string{"outcome"}),
		QuoteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_errors_total",
			Help:      "Rejected quotes, by error type.",
		}, []string{"type"}),
		DiscountPlans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_plans_total",
			Help:      "Resolved discount plans, by variant.",
		}, []string{"plan"}),
		RateTableVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_table_version",
			Help:      "Version of the active rate table.",
		}),
		RateTableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate_table_rows",
			Help:      "Rows in the active rate table.",
		}),
	}

	m.Registry.MustRegister(
		m.QuotesTotal,
		m.QuoteErrors,
		m.DiscountPlans,
		m.RateTableVersion,
		m.RateTableRows,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveQuote counts a successful quote and its plan
func (m *Metrics) ObserveQuote(plan string) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues("ok").Inc()
	m.DiscountPlans.WithLabelValues(plan).Inc()
}

// ObserveError counts a rejected quote
func (m *Metrics) ObserveError(errType string) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues("error").Inc()
	m.QuoteErrors.WithLabelValues(errType).Inc()
}

// ObserveTable records the active table
func (m *Metrics) ObserveTable(version int64, rows int) {
	if m == nil {
		return
	}
	m.RateTableVersion.Set(float64(version))
	m.RateTableRows.Set(float64(rows))
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
