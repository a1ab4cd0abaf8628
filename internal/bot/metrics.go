package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 消息处理指标
type Metrics struct {
	handleDuration *prometheus.HistogramVec
	droppedTasks   prometheus.Counter
}

// NewMetrics 在给定 registry 上注册指标
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		handleDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "despesas",
				Subsystem: "whatsapp",
				Name:      "handle_duration_seconds",
				Help:      "Time spent handling an inbound message.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"command", "status"},
		),
		droppedTasks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "despesas",
			Subsystem: "whatsapp",
			Name:      "dropped_messages_total",
			Help:      "Inbound messages dropped because the worker queue was full.",
		}),
	}
}

// ObserveHandle 记录一次消息处理耗时
func (m *Metrics) ObserveHandle(command string, failed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.handleDuration.WithLabelValues(command, status).Observe(elapsed.Seconds())
}

// IncDropped 记录一次因队列满而丢弃的消息
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.droppedTasks.Inc()
}
