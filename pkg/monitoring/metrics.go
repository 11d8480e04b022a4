/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics.go
Description: Prometheus metrics for FVM. Tracks external command runs, parse outcomes,
findings per category, entries per severity and HTTP traffic, together with the Go
runtime and process collectors. Each Metrics owns its registry.
*/

package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kleascm/fvm/pkg/apperr"
	"github.com/kleascm/fvm/pkg/logparse"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fvm"

// OutcomeOK labels successful operations
const OutcomeOK = "ok"

// Metrics holds every collector exposed on /metrics
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	parses          *prometheus.CounterVec
	parseDuration   prometheus.Histogram
	entries         *prometheus.CounterVec
	findings        *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers all collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "External commands run, by subcommand and outcome",
		}, []string{"subcommand", "outcome"}),
		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time of external commands",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"subcommand"}),
		parses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parses_total",
			Help:      "Parsed tool outputs, by outcome (ok or error code)",
		}, []string{"outcome"}),
		parseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_duration_seconds",
			Help:      "Time spent normalizing, extracting and classifying",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		entries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_entries_total",
			Help:      "Extracted log entries by severity",
		}, []string{"severity"}),
		findings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Security findings by category",
		}, []string{"category"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveParse implements logparse.Observer
func (m *Metrics) ObserveParse(duration time.Duration, result *logparse.ParseResult, err error) {
	m.parseDuration.Observe(duration.Seconds())
	m.parses.WithLabelValues(outcome(err)).Inc()
	if result == nil {
		return
	}
	for severity, n := range result.Counts() {
		m.entries.WithLabelValues(severity.Name()).Add(float64(n))
	}
	for _, f := range result.Messages {
		m.findings.WithLabelValues(f.Category).Inc()
	}
}

// ObserveCommand records one external command run
func (m *Metrics) ObserveCommand(subcommand string, duration time.Duration, err error) {
	m.commands.WithLabelValues(subcommand, outcome(err)).Inc()
	m.commandDuration.WithLabelValues(subcommand).Observe(duration.Seconds())
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route string, status int, duration time.Duration) {
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return string(apperr.From(err).Code)
}
