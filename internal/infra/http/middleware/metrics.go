package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	chatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Total number of chat turns processed",
		},
		[]string{"status"},
	)

	retrievalFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retrieval_failures_total",
			Help: "Total number of semantic retrieval failures absorbed",
		},
	)

	leadAnalysisTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_analysis_total",
			Help: "Total number of background lead analyses",
		},
		[]string{"status"},
	)

	hotLeadAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hot_lead_alerts_total",
			Help: "Total number of hot lead alerts sent",
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordTurn(status string) {
	chatTurnsTotal.WithLabelValues(status).Inc()
}

func RecordRetrievalFailure() {
	retrievalFailures.Inc()
}

func RecordAnalysis(status string) {
	leadAnalysisTotal.WithLabelValues(status).Inc()
}

func RecordHotLeadAlert() {
	hotLeadAlerts.Inc()
}
