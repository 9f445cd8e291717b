// Package metrics holds the Prometheus collectors of the security server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Detection results used as label values.
const (
	ResultPerson   = "person"
	ResultNoPerson = "no_person"
	ResultError    = "error"
)

// Metrics holds Prometheus metrics for detection and alarm transitions.
type Metrics struct {
	DetectionsTotal   *prometheus.CounterVec
	DetectionDuration prometheus.Histogram
	WorkersInFlight   prometheus.Gauge
	TransitionsTotal  *prometheus.CounterVec
}

// NewMetrics registers and returns the metrics on the given registerer.
// A nil registerer creates unregistered collectors, which suits tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DetectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_detections_total",
			Help: "Detection worker runs by result.",
		}, []string{"result"}),
		DetectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "security_detection_duration_seconds",
			Help:    "Wall time of a detection worker run, including queueing.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 0.25s .. ~128s
		}),
		WorkersInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "security_detection_workers_in_flight",
			Help: "Detection workers currently running.",
		}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "security_transitions_total",
			Help: "Alarm transition attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.DetectionsTotal, m.DetectionDuration, m.WorkersInFlight, m.TransitionsTotal)
	}

	return m
}
