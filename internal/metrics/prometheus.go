package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// PrometheusCollector counts the engine's traffic and swallowed failures.
type PrometheusCollector struct {
	registry *prometheus.Registry

	linesReceivedTotal  prometheus.Counter
	linesSentTotal      *prometheus.CounterVec
	outputFailuresTotal *prometheus.CounterVec

	eventLogEntriesTotal  *prometheus.CounterVec
	eventLogFailuresTotal *prometheus.CounterVec
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	LinesReceived    int64
	StdoutSent       int64
	StderrSent       int64
	OutputFailures   int64
	EventLogEntries  int64
	EventLogFailures int64
}

// NewPrometheusCollector registers the engine metrics on reg. A nil reg gets a
// fresh registry so independent engines in one process do not collide.
func NewPrometheusCollector(reg *prometheus.Registry) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		registry: reg,

		linesReceivedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "echo_engine_lines_received_total",
				Help: "Total number of request lines read from stdin",
			},
		),
		linesSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_engine_lines_sent_total",
				Help: "Total number of lines written to an output stream",
			},
			[]string{"stream"},
		),
		outputFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_engine_output_failures_total",
				Help: "Total number of failed writes to an output stream",
			},
			[]string{"stream"},
		),
		eventLogEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_engine_event_log_entries_total",
				Help: "Total number of entries appended to the event log",
			},
			[]string{"stream", "direction"},
		),
		eventLogFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "echo_engine_event_log_failures_total",
				Help: "Total number of event log appends that failed and were dropped",
			},
			[]string{"stage"},
		),
	}
}

// Registry returns the registry the collector's metrics live on.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.registry
}

// RecordLineReceived records one line read from stdin.
func (p *PrometheusCollector) RecordLineReceived() {
	p.linesReceivedTotal.Inc()
}

// RecordLineSent records one line written to stream.
func (p *PrometheusCollector) RecordLineSent(stream string) {
	p.linesSentTotal.WithLabelValues(stream).Inc()
}

// RecordOutputFailure records a failed write to stream.
func (p *PrometheusCollector) RecordOutputFailure(stream string) {
	p.outputFailuresTotal.WithLabelValues(stream).Inc()
}

// RecordEventLogEntry records a successful event log append.
func (p *PrometheusCollector) RecordEventLogEntry(stream, direction string) {
	p.eventLogEntriesTotal.WithLabelValues(stream, direction).Inc()
}

// RecordEventLogFailure records a dropped event log append. stage is one of
// "open", "write" or "close".
func (p *PrometheusCollector) RecordEventLogFailure(stage string) {
	p.eventLogFailuresTotal.WithLabelValues(stage).Inc()
}

// Snapshot reads the current counter values from the registry.
func (p *PrometheusCollector) Snapshot() Snapshot {
	families, err := p.registry.Gather()
	if err != nil {
		return Snapshot{}
	}

	var snap Snapshot
	for _, family := range families {
		for _, m := range family.GetMetric() {
			value := int64(m.GetCounter().GetValue())
			switch family.GetName() {
			case "echo_engine_lines_received_total":
				snap.LinesReceived += value
			case "echo_engine_lines_sent_total":
				switch labelValue(m, "stream") {
				case "stdout":
					snap.StdoutSent += value
				case "stderr":
					snap.StderrSent += value
				}
			case "echo_engine_output_failures_total":
				snap.OutputFailures += value
			case "echo_engine_event_log_entries_total":
				snap.EventLogEntries += value
			case "echo_engine_event_log_failures_total":
				snap.EventLogFailures += value
			}
		}
	}
	return snap
}

func labelValue(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
