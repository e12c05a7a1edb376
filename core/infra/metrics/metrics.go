package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics captures gate decisions and identity-verification outcomes.
type Metrics interface {
	IncDecision(outcome, platform, prefix string)
	ObserveVerify(result string, durationSeconds float64)
	IncAnomaly(kind string)
	IncRateLimited(prefix string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncDecision(string, string, string) {}
func (Noop) ObserveVerify(string, float64)      {}
func (Noop) IncAnomaly(string)                  {}
func (Noop) IncRateLimited(string)              {}

// Prom implements Metrics backed by Prometheus collectors.
type Prom struct {
	decisions   *prometheus.CounterVec
	verify      *prometheus.HistogramVec
	anomalies   *prometheus.CounterVec
	rateLimited *prometheus.CounterVec
	once        sync.Once
}

func NewProm(namespace string) *Prom {
	p := &Prom{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Gate decisions by outcome, platform and route prefix",
		}, []string{"outcome", "platform", "prefix"}),
		verify: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identity_verify_duration_seconds",
			Help:      "Identity verification latency by result",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_total",
			Help:      "Recorded auth anomalies by kind",
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the burst limiter per route prefix",
		}, []string{"prefix"}),
	}
	p.register()
	return p
}

func (p *Prom) register() {
	p.once.Do(func() {
		prometheus.MustRegister(p.decisions, p.verify, p.anomalies, p.rateLimited)
	})
}

func (p *Prom) IncDecision(outcome, platform, prefix string) {
	p.decisions.WithLabelValues(outcome, platform, prefix).Inc()
}

func (p *Prom) ObserveVerify(result string, durationSeconds float64) {
	p.verify.WithLabelValues(result).Observe(durationSeconds)
}

func (p *Prom) IncAnomaly(kind string) {
	p.anomalies.WithLabelValues(kind).Inc()
}

func (p *Prom) IncRateLimited(prefix string) {
	p.rateLimited.WithLabelValues(prefix).Inc()
}

// Handler returns an HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
