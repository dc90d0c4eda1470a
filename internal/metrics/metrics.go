// Package metrics exposes Prometheus counters and histograms for the
// negotiation engine. Grounded on the teacher's pkg/metrics nil-when-
// disabled pattern: when metrics are not enabled, Collector is nil and
// every recording helper is a no-op, so the engine pays zero overhead in
// that mode (spec's ambient-stack carry-over: logging/metrics survive
// even though the spec's Non-goals exclude a standalone observability
// surface).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus instruments for one registry. A nil
// *Collector is valid and every method on it is a no-op.
type Collector struct {
	tokensProcessed   *prometheus.CounterVec
	notUnderstood     prometheus.Counter
	chapOutcomes      *prometheus.CounterVec
	negotiationStatus *prometheus.CounterVec
	parseDuration     prometheus.Histogram
}

// New registers the engine's instruments against reg. Pass a fresh
// *prometheus.Registry (or prometheus.DefaultRegisterer via
// prometheus.WrapRegistererWith) per process.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		tokensProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iscsi_login_tokens_processed_total",
			Help: "Total number of key=value tokens processed during login negotiation.",
		}, []string{"direction"}),
		notUnderstood: f.NewCounter(prometheus.CounterOpts{
			Name: "iscsi_login_not_understood_total",
			Help: "Total number of tokens answered with NotUnderstood.",
		}),
		chapOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iscsi_login_chap_outcomes_total",
			Help: "CHAP exchange outcomes by verdict.",
		}, []string{"verdict"}),
		negotiationStatus: f.NewCounterVec(prometheus.CounterOpts{
			Name: "iscsi_login_negotiation_status_total",
			Help: "Negotiator.Parse outcomes by status.",
		}, []string{"status"}),
		parseDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "iscsi_login_parse_duration_milliseconds",
			Help:    "Duration of one Negotiator.Parse call.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 50, 100},
		}),
	}
}

func (c *Collector) ObserveToken(direction string) {
	if c == nil {
		return
	}
	c.tokensProcessed.WithLabelValues(direction).Inc()
}

func (c *Collector) ObserveNotUnderstood() {
	if c == nil {
		return
	}
	c.notUnderstood.Inc()
}

func (c *Collector) ObserveCHAPOutcome(verdict string) {
	if c == nil {
		return
	}
	c.chapOutcomes.WithLabelValues(verdict).Inc()
}

func (c *Collector) ObserveStatus(status string) {
	if c == nil {
		return
	}
	c.negotiationStatus.WithLabelValues(status).Inc()
}

func (c *Collector) ObserveParseDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.parseDuration.Observe(float64(d.Microseconds()) / 1000.0)
}
