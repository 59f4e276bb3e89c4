package metrics

import (
	"SignalGate/internal/domain/models"
	"SignalGate/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	decisions     *prometheus.CounterVec
	gates         *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	ledgerAppends *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	tampered      prometheus.Counter
	latency       *prometheus.HistogramVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New creates a Prometheus recorder registered on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_decisions_total",
				Help: "Decisions made, by outcome and symbol",
			},
			[]string{"decision", "symbol"},
		),
		gates: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_gate_evaluations_total",
				Help: "Gate evaluations, by gate and result",
			},
			[]string{"gate", "result"},
		),
		fallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_provider_fallbacks_total",
				Help: "Market context fields served from fallback defaults",
			},
			[]string{"provider"},
		),
		ledgerAppends: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_ledger_appends_total",
				Help: "Ledger append attempts, by backend and result",
			},
			[]string{"backend", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalgate_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		tampered: f.NewCounter(
			prometheus.CounterOpts{
				Name: "signalgate_config_tamper_detected_total",
				Help: "Configuration integrity mismatches detected by the guard",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signalgate_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordDecision(decision models.Decision, symbol string) {
	r.decisions.WithLabelValues(string(decision), symbol).Inc()
}

func (r *Recorder) RecordGate(gate string, passed bool) {
	result := "fail"
	if passed {
		result = "pass"
	}
	r.gates.WithLabelValues(gate, result).Inc()
}

func (r *Recorder) RecordFallback(provider string) {
	r.fallbacks.WithLabelValues(provider).Inc()
}

func (r *Recorder) RecordLedgerAppend(backend string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.ledgerAppends.WithLabelValues(backend, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordTamper counts a configuration integrity failure.
func (r *Recorder) RecordTamper() {
	r.tampered.Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards all measurements.
type Nop struct{}

var _ repository.Metrics = Nop{}

func (Nop) RecordDecision(models.Decision, string) {}
func (Nop) RecordGate(string, bool)                {}
func (Nop) RecordFallback(string)                  {}
func (Nop) RecordLedgerAppend(string, error)       {}
func (Nop) RecordError(string)                     {}
func (Nop) RecordLatency(string, float64)          {}
