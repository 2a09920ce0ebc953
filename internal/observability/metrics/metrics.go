package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	// Firing statuses recorded on FiringsTotal.
	StatusSuccess          = "success"
	StatusOfficeMissing    = "office_missing"
	StatusMeasurementError = "measurement_error"
	StatusPersistenceError = "persistence_error"
)

// Metrics bundles speedwatch scheduler and measurement metrics.
type Metrics struct {
	FiringsTotal        *prometheus.CounterVec
	MeasurementDuration prometheus.Histogram
	RecordsTotal        prometheus.Counter
	SchedulesActive     prometheus.Gauge
	CompliancePercent   *prometheus.GaugeVec
}

// New constructs and registers metrics.
func New() *Metrics {
	m := &Metrics{
		FiringsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speedwatch_schedule_firings_total",
				Help: "Total schedule firings by status",
			},
			[]string{"status"},
		),
		MeasurementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "speedwatch_measurement_duration_seconds",
			Help:    "Speed test duration in seconds",
			Buckets: []float64{1, 5, 10, 20, 40, 60, 90, 120},
		}),
		RecordsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "speedwatch_records_total",
			Help: "Total speed test records persisted",
		}),
		SchedulesActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "speedwatch_schedules_active",
			Help: "Number of armed schedule triggers",
		}),
		CompliancePercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "speedwatch_office_compliance_percent",
				Help: "Latest computed compliance percentage per office",
			},
			[]string{"office"},
		),
	}
	prometheus.MustRegister(
		m.FiringsTotal,
		m.MeasurementDuration,
		m.RecordsTotal,
		m.SchedulesActive,
		m.CompliancePercent,
	)
	return m
}

// ObserveFiring increments the firing counter for a status.
func (m *Metrics) ObserveFiring(status string) {
	if m == nil {
		return
	}
	m.FiringsTotal.WithLabelValues(status).Inc()
}
