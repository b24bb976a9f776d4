package emit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible counters and a
// histogram for dialog engine monitoring. All metrics are namespaced
// with "dialogengine_".
//
// Metrics exposed:
//
//  1. ticks_total (counter): Dialog.Process calls, labeled by dialog_key.
//  2. transitions_total (counter): transitions appended to the log,
//     labeled by reason (see the dispatch-cause enum in spec §3).
//  3. tick_latency_ms (histogram): wall-clock duration of one Process call.
//  4. interrupts_total (counter): pre-dispatch interrupt pre-emptions,
//     labeled by interrupt node ID.
//  5. dialogs_finished_total (counter): dialogs that transitioned to
//     finished, labeled by finish_reason.
type PrometheusMetrics struct {
	ticks           *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	tickLatency     prometheus.Histogram
	interrupts      *prometheus.CounterVec
	dialogsFinished *prometheus.CounterVec

	mu       sync.Mutex
	enabled  bool
	registry prometheus.Registerer
}

// NewPrometheusMetrics registers dialog engine metrics with registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)
	pm := &PrometheusMetrics{registry: registry, enabled: true}

	pm.ticks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialogengine",
		Name:      "ticks_total",
		Help:      "Total Dialog.Process calls.",
	}, []string{"dialog_key"})

	pm.transitions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialogengine",
		Name:      "transitions_total",
		Help:      "Total transitions appended to dialog logs, by reason.",
	}, []string{"reason"})

	pm.tickLatency = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dialogengine",
		Name:      "tick_latency_ms",
		Help:      "Duration of a single Dialog.Process call, in milliseconds.",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	})

	pm.interrupts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialogengine",
		Name:      "interrupts_total",
		Help:      "Total pre-dispatch interrupt pre-emptions, by node ID.",
	}, []string{"node_id"})

	pm.dialogsFinished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dialogengine",
		Name:      "dialogs_finished_total",
		Help:      "Total dialogs that reached a finished state, by finish_reason.",
	}, []string{"finish_reason"})

	return pm
}

// RecordTick increments the tick counter and observes latency for dialogKey.
func (pm *PrometheusMetrics) RecordTick(dialogKey string, latency time.Duration) {
	if !pm.isEnabled() {
		return
	}
	pm.ticks.WithLabelValues(dialogKey).Inc()
	pm.tickLatency.Observe(float64(latency.Milliseconds()))
}

// RecordTransition increments the transitions counter for reason.
func (pm *PrometheusMetrics) RecordTransition(reason string) {
	if !pm.isEnabled() {
		return
	}
	pm.transitions.WithLabelValues(reason).Inc()
}

// RecordInterrupt increments the interrupts counter for nodeID.
func (pm *PrometheusMetrics) RecordInterrupt(nodeID string) {
	if !pm.isEnabled() {
		return
	}
	pm.interrupts.WithLabelValues(nodeID).Inc()
}

// RecordFinished increments the dialogs-finished counter for finishReason.
func (pm *PrometheusMetrics) RecordFinished(finishReason string) {
	if !pm.isEnabled() {
		return
	}
	pm.dialogsFinished.WithLabelValues(finishReason).Inc()
}

// Disable stops recording without unregistering the collectors.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes recording.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.enabled
}
