package treecalc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts evaluation work. A nil *Metrics is valid and counts nothing.
type Metrics struct {
	Evaluations prometheus.Counter
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	LoopSteps   prometheus.Counter
}

// NewMetrics creates evaluation metrics registered with reg. If reg is nil,
// the metrics are not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Evaluations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "treecalc_evaluations_total",
			Help: "Total number of expression evaluations.",
		}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "treecalc_cache_hits_total",
			Help: "Total number of group values served from the evaluation cache.",
		}),
		CacheMisses: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "treecalc_cache_misses_total",
			Help: "Total number of cached group values computed.",
		}),
		LoopSteps: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "treecalc_loop_steps_total",
			Help: "Total number of range loop steps evaluated.",
		}),
	}
}

func (m *Metrics) evaluation() {
	if m != nil {
		m.Evaluations.Inc()
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) step() {
	if m != nil {
		m.LoopSteps.Inc()
	}
}
