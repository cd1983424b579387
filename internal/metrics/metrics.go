package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "swimslot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_bookings_total",
			Help: "Total number of bookings created",
		},
		[]string{"kind"},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_booking_cancellations_total",
			Help: "Total number of booking cancellations",
		},
		[]string{"source", "late"},
	)

	ReschedulesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swimslot_reschedules_total",
			Help: "Total number of bookings moved to another session",
		},
	)

	InstructorChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_instructor_changes_total",
			Help: "Total number of instructor changes",
		},
		[]string{"scope"},
	)

	CascadeFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "swimslot_instructor_cascade_failures_total",
			Help: "Future sessions that could not be reassigned during a cascade",
		},
	)

	SchedulingRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_scheduling_rejections_total",
			Help: "Scheduling operations rejected with a business error",
		},
		[]string{"operation", "kind"},
	)

	StoreUnavailableTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_store_unavailable_total",
			Help: "Persistence calls that failed or were rejected by the circuit breaker",
		},
		[]string{"op"},
	)

	EmailsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_emails_sent_total",
			Help: "Total number of emails sent",
		},
		[]string{"type", "status"},
	)

	EmailQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "swimslot_email_queue_length",
			Help: "Current length of email queue",
		},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimslot_events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"type", "status"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(kind string) {
	BookingsTotal.WithLabelValues(kind).Inc()
}

func RecordBookingCancellation(source string, late bool) {
	lateLabel := "false"
	if late {
		lateLabel = "true"
	}
	BookingCancellationsTotal.WithLabelValues(source, lateLabel).Inc()
}

func RecordReschedule() {
	ReschedulesTotal.Inc()
}

func RecordInstructorChange(scope string) {
	InstructorChangesTotal.WithLabelValues(scope).Inc()
}

func RecordCascadeFailures(n int) {
	CascadeFailuresTotal.Add(float64(n))
}

func RecordRejection(operation, kind string) {
	SchedulingRejectionsTotal.WithLabelValues(operation, kind).Inc()
}

func RecordStoreUnavailable(op string) {
	StoreUnavailableTotal.WithLabelValues(op).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSentTotal.WithLabelValues(emailType, status).Inc()
}

func RecordEvent(eventType, status string) {
	EventsPublishedTotal.WithLabelValues(eventType, status).Inc()
}
