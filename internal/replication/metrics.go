package replication

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReplicationMetrics - прометей-метрики пути репликации.
// Регистрируются в переданном регистре, чтобы авторитетный мир и
// наблюдатель в одном процессе не конфликтовали именами.
//
// Метрики:
// * oreworld_blocks_changed_total — счётчик изменённых блоков
// * oreworld_deltas_sent_total{kind} — счётчик отправленных сообщений
// * oreworld_deltas_rejected_total{reason} — счётчик отклонённых сообщений
// * oreworld_snapshot_bytes — размер последнего снапшота
type ReplicationMetrics struct {
	blocksChanged  prometheus.Counter
	deltasSent     *prometheus.CounterVec
	deltasRejected *prometheus.CounterVec
	snapshotBytes  prometheus.Gauge
}

// NewReplicationMetrics создаёт и регистрирует метрики репликации
func NewReplicationMetrics(reg prometheus.Registerer) *ReplicationMetrics {
	rm := &ReplicationMetrics{
		blocksChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oreworld",
			Name:      "blocks_changed_total",
			Help:      "Общее число изменённых блоков на авторитетной стороне.",
		}),
		deltasSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oreworld",
			Name:      "deltas_sent_total",
			Help:      "Общее число отправленных сообщений репликации.",
		}, []string{"kind"}),
		deltasRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oreworld",
			Name:      "deltas_rejected_total",
			Help:      "Общее число отклонённых входящих сообщений.",
		}, []string{"reason"}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oreworld",
			Name:      "snapshot_bytes",
			Help:      "Размер последнего закодированного снапшота мира.",
		}),
	}

	if reg != nil {
		reg.MustRegister(rm.blocksChanged, rm.deltasSent, rm.deltasRejected, rm.snapshotBytes)
	}
	return rm
}
