package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MovementMetrics records movement document transitions and their failures.
type MovementMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	ledger      prometheus.Counter
}

// NewMovementMetrics registers the movement metrics on the provided registerer.
func NewMovementMetrics(reg prometheus.Registerer) *MovementMetrics {
	if reg == nil {
		return &MovementMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movement_transitions_total",
		Help: "Completed movement document transitions.",
	}, []string{"kind", "to_status"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "movement_rejections_total",
		Help: "Movement transitions rejected before committing.",
	}, []string{"kind", "reason"})
	ledger := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Ledger entries appended.",
	})
	reg.MustRegister(transitions, rejections, ledger)
	return &MovementMetrics{
		transitions: transitions,
		rejections:  rejections,
		ledger:      ledger,
	}
}

// IncTransition counts one committed transition for the given document kind.
func (m *MovementMetrics) IncTransition(kind, toStatus string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(kind), normalizeLabel(toStatus)).Inc()
}

// IncRejection counts one rejected transition with the rejection reason.
func (m *MovementMetrics) IncRejection(kind, reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(kind), normalizeLabel(reason)).Inc()
}

// IncLedgerEntries counts appended ledger entries.
func (m *MovementMetrics) IncLedgerEntries(n int) {
	if m == nil || m.ledger == nil {
		return
	}
	for i := 0; i < n; i++ {
		m.ledger.Inc()
	}
}
