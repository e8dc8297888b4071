package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusExporter_ObserveCoreExecution(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewMetricsCollector(100)
	e := NewPrometheusExporter(c, reg)

	e.ObserveCoreExecution("structured", true)
	e.ObserveCoreExecution("structured", false)

	got := testutil.ToFloat64(e.coreExecutions.WithLabelValues("structured", "success"))
	if got != 1 {
		t.Errorf("success count = %f, want 1", got)
	}
}

func TestPrometheusExporter_SetOpenBreakers(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewMetricsCollector(100)
	e := NewPrometheusExporter(c, reg)

	e.SetOpenBreakers(2)
	if got := testutil.ToFloat64(e.openBreakers); got != 2 {
		t.Errorf("openBreakers = %f, want 2", got)
	}
}
