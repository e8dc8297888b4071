package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter exposes core-execution, breaker, bus-delivery and
// OTA-cycle metrics as Prometheus counters and gauges for external
// scraping. Its values change only through its Observe* and Set*
// methods; it does not read from the MetricsCollector it is constructed
// with.
type PrometheusExporter struct {
	collector *MetricsCollector

	coreExecutions  *prometheus.CounterVec
	breakerTrips    *prometheus.CounterVec
	busDeliveries   prometheus.Counter
	otaCycles       prometheus.Counter
	openBreakers    prometheus.Gauge
	globalShutdown  prometheus.Gauge
}

// NewPrometheusExporter builds an exporter backed by collector and
// registers its metrics with reg.
func NewPrometheusExporter(collector *MetricsCollector, reg prometheus.Registerer) *PrometheusExporter {
	e := &PrometheusExporter{
		collector: collector,
		coreExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrt",
			Name:      "core_executions_total",
			Help:      "Total executions per core type, labeled by outcome.",
		}, []string{"core_type", "outcome"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentrt",
			Name:      "breaker_trips_total",
			Help:      "Total circuit breaker trips, labeled by component.",
		}, []string{"component"}),
		busDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentrt",
			Name:      "bus_deliveries_total",
			Help:      "Total agent bus message deliveries.",
		}),
		otaCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentrt",
			Name:      "ota_cycles_total",
			Help:      "Total OTA self-update cycles attempted.",
		}),
		openBreakers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentrt",
			Name:      "breakers_open",
			Help:      "Current number of open circuit breakers.",
		}),
		globalShutdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentrt",
			Name:      "failsafe_global_shutdown",
			Help:      "1 if the failsafe cascade shutdown is active, else 0.",
		}),
	}

	reg.MustRegister(e.coreExecutions, e.breakerTrips, e.busDeliveries, e.otaCycles, e.openBreakers, e.globalShutdown)
	return e
}

// ObserveCoreExecution records one core execution outcome.
func (e *PrometheusExporter) ObserveCoreExecution(coreType string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	e.coreExecutions.WithLabelValues(coreType, outcome).Inc()
}

// ObserveBreakerTrip records a circuit breaker opening for component.
func (e *PrometheusExporter) ObserveBreakerTrip(component string) {
	e.breakerTrips.WithLabelValues(component).Inc()
}

// ObserveBusDelivery records one successful bus message delivery.
func (e *PrometheusExporter) ObserveBusDelivery() {
	e.busDeliveries.Inc()
}

// ObserveOTACycle records one OTA update cycle attempt.
func (e *PrometheusExporter) ObserveOTACycle() {
	e.otaCycles.Inc()
}

// SetOpenBreakers sets the current open-breaker gauge.
func (e *PrometheusExporter) SetOpenBreakers(n int) {
	e.openBreakers.Set(float64(n))
}

// SetGlobalShutdown sets the cascade-shutdown gauge.
func (e *PrometheusExporter) SetGlobalShutdown(active bool) {
	if active {
		e.globalShutdown.Set(1)
		return
	}
	e.globalShutdown.Set(0)
}
