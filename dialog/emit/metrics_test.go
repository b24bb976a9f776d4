package emit

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := <-ch
	var metric dto.Metric
	if err := m.Write(&metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter != nil {
		return metric.Counter.GetValue()
	}
	return 0
}

func TestPrometheusMetricsRecordTick(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordTick("dialog-1", 5*time.Millisecond)

	got := counterValue(t, pm.ticks.WithLabelValues("dialog-1"))
	if got != 1 {
		t.Fatalf("expected 1 tick recorded, got %v", got)
	}
}

func TestPrometheusMetricsDisableStopsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.Disable()
	pm.RecordTransition("valid-response")
	if got := counterValue(t, pm.transitions.WithLabelValues("valid-response")); got != 0 {
		t.Fatalf("expected no transitions recorded while disabled, got %v", got)
	}

	pm.Enable()
	pm.RecordTransition("valid-response")
	if got := counterValue(t, pm.transitions.WithLabelValues("valid-response")); got != 1 {
		t.Fatalf("expected 1 transition recorded after enable, got %v", got)
	}
}

func TestPrometheusMetricsFinishedAndInterrupts(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordFinished("dialog_concluded")
	pm.RecordInterrupt("interrupt-1")

	if got := counterValue(t, pm.dialogsFinished.WithLabelValues("dialog_concluded")); got != 1 {
		t.Fatalf("expected 1 finished dialog, got %v", got)
	}
	if got := counterValue(t, pm.interrupts.WithLabelValues("interrupt-1")); got != 1 {
		t.Fatalf("expected 1 interrupt, got %v", got)
	}
}
