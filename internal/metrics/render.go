package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvstudio",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "PDF 渲染耗时分布（秒）。",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "status"},
	)

	renderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvstudio",
			Subsystem: "render",
			Name:      "total",
			Help:      "PDF 渲染次数。",
		},
		[]string{"backend", "status"},
	)

	adaptTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvstudio",
			Subsystem: "adapt",
			Name:      "requests_total",
			Help:      "Adaptation calls to the completion API by outcome.",
		},
		[]string{"status"},
	)
)

// ObserveRender 记录一次渲染。
func ObserveRender(backend, status string, elapsed time.Duration) {
	renderDuration.WithLabelValues(backend, status).Observe(elapsed.Seconds())
	renderTotal.WithLabelValues(backend, status).Inc()
}

// ObserveAdapt 记录一次改写结果。
func ObserveAdapt(status string) {
	adaptTotal.WithLabelValues(status).Inc()
}
