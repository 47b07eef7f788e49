package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's prometheus collectors, registered on the
// default registry and served by promhttp.
type Metrics struct {
	MarksTotal          *prometheus.CounterVec
	DuplicatesRejected  prometheus.Counter
	RegisteredStudents  prometheus.Gauge
	RecognizerNoMatches prometheus.Counter
}

// New registers and returns the collectors.
func New() *Metrics {
	return &Metrics{
		MarksTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facemark_marks_total",
			Help: "Accepted attendance marks by status.",
		}, []string{"status", "method"}),
		DuplicatesRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facemark_duplicate_marks_rejected_total",
			Help: "Marks rejected by the one-per-day rule.",
		}),
		RegisteredStudents: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "facemark_registered_students",
			Help: "Current number of registered students.",
		}),
		RecognizerNoMatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facemark_recognizer_no_match_total",
			Help: "Capture attempts that resolved to no student.",
		}),
	}
}
