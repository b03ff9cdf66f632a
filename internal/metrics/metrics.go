package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindd_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "remindd_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	remindersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindd_reminders_created_total",
			Help: "Total reminders created by channel",
		},
		[]string{"channel"},
	)

	deliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remindd_delivery_attempts_total",
			Help: "Total delivery attempts by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	jobsScheduled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindd_scheduler_jobs_scheduled_total",
			Help: "Total jobs registered with the scheduler",
		},
	)

	jobsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindd_scheduler_jobs_cancelled_total",
			Help: "Total jobs cancelled before firing",
		},
	)

	jobsFired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "remindd_scheduler_jobs_fired_total",
			Help: "Total jobs claimed and dispatched by the scheduler loop",
		},
	)

	callbacksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "remindd_scheduler_callbacks_in_flight",
			Help: "Scheduler callbacks currently executing",
		},
	)

	scheduleLag = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "remindd_scheduler_fire_lag_seconds",
			Help:    "Delay between requested fire time and actual dispatch",
			Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 60},
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordReminderCreated records a reminder creation
func RecordReminderCreated(channel string) {
	remindersCreated.WithLabelValues(channel).Inc()
}

// RecordDeliveryAttempt records a delivery attempt outcome ("sent" or "error")
func RecordDeliveryAttempt(channel, status string) {
	deliveryAttempts.WithLabelValues(channel, status).Inc()
}

// RecordJobScheduled records a job registration
func RecordJobScheduled() {
	jobsScheduled.Inc()
}

// RecordJobCancelled records a job cancellation
func RecordJobCancelled() {
	jobsCancelled.Inc()
}

// RecordJobFired records a job claim and dispatch
func RecordJobFired() {
	jobsFired.Inc()
}

// CallbackStarted marks a scheduler callback as running
func CallbackStarted() {
	callbacksInFlight.Inc()
}

// CallbackFinished marks a scheduler callback as done
func CallbackFinished() {
	callbacksInFlight.Dec()
}

// RecordFireLag records how late a job fired relative to its fire time
func RecordFireLag(lag time.Duration) {
	scheduleLag.Observe(lag.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
