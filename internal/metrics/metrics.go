package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GeofenceChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_checks_total",
		Help: "Geofence checks by outcome (compliant, warning, blocked, skipped)",
	}, []string{"result"})
	ViolationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_violations_total",
		Help: "Rejected or flagged requests by response code",
	}, []string{"code"})
	SecurityIssuesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_security_issues_total",
		Help: "Failed anti-spoofing checks by check name",
	}, []string{"check"})
	DeviceDriftTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_device_drift_total",
		Help: "Fingerprint changes on known devices by field",
	}, []string{"field"})
	StoreErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geofence_store_errors_total",
		Help: "Key/value store failures by component",
	}, []string{"component"})
	SecurityScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geofence_security_score",
		Help:    "Security score of verified requests",
		Buckets: []float64{0, 20, 40, 60, 70, 80, 85, 90, 100},
	})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geofence_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"route"})
)

func init() {
	prometheus.MustRegister(GeofenceChecksTotal)
	prometheus.MustRegister(ViolationsTotal)
	prometheus.MustRegister(SecurityIssuesTotal)
	prometheus.MustRegister(DeviceDriftTotal)
	prometheus.MustRegister(StoreErrorsTotal)
	prometheus.MustRegister(SecurityScore)
	prometheus.MustRegister(RequestDurationMs)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
