package knowledge

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSet holds the counters a Context reports. A nil *metricsSet is
// safe to call into: contexts built without
// WithMetrics simply don't record anything, following the same
// "counters are optional, ambient" posture the teacher takes with its
// own status logging.
type metricsSet struct {
	once    sync.Once
	reads   *prometheus.CounterVec
	writes  *prometheus.CounterVec
	deletes prometheus.Counter
	rejects prometheus.Counter
	applied prometheus.Counter
	waits   prometheus.Counter
}

func newMetricsSet(reg prometheus.Registerer, namespace string) *metricsSet {
	m := &metricsSet{
		reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_reads_total",
			Help:      "Number of successful reads from the knowledge context, by kind.",
		}, []string{"kind"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_writes_total",
			Help:      "Number of successful writes to the knowledge context, by kind.",
		}, []string{"kind"}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_deletes_total",
			Help:      "Number of variables removed from the knowledge context.",
		}),
		rejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_merge_rejected_total",
			Help:      "Number of external updates rejected by the clock/quality merge rule.",
		}),
		applied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_merge_applied_total",
			Help:      "Number of external updates accepted by the clock/quality merge rule.",
		}),
		waits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_signals_total",
			Help:      "Number of times the change condition was signaled.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reads, m.writes, m.deletes, m.rejects, m.applied, m.waits)
	}
	return m
}

func (m *metricsSet) read(kind string) {
	if m == nil {
		return
	}
	m.reads.WithLabelValues(kind).Inc()
}

func (m *metricsSet) write(kind string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(kind).Inc()
}

func (m *metricsSet) delete() {
	if m != nil {
		m.deletes.Inc()
	}
}

func (m *metricsSet) mergeRejected() {
	if m != nil {
		m.rejects.Inc()
	}
}

func (m *metricsSet) externalApplied() {
	if m != nil {
		m.applied.Inc()
	}
}

func (m *metricsSet) signal() {
	if m != nil {
		m.waits.Inc()
	}
}
