package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_http_requests_total",
			Help: "Total number of HTTP requests processed by the comms service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comms_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_messages_sent_total",
			Help: "Total number of messages accepted by the dispatcher.",
		},
		[]string{"sender_role", "recipient_role"},
	)
	messagesFlaggedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "comms_messages_flagged_total",
			Help: "Total number of messages flagged by the safety filter.",
		},
	)
	policyDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_policy_denials_total",
			Help: "Total number of sends denied by the policy engine.",
		},
		[]string{"reason"},
	)
	mirrorFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "comms_guardian_mirror_failures_total",
			Help: "Total number of guardian mirror writes queued for retry.",
		},
	)
	wsActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "comms_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comms_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "comms_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		messagesSentTotal,
		messagesFlaggedTotal,
		policyDenialsTotal,
		mirrorFailuresTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncMessageSent(senderRole, recipientRole string) {
	messagesSentTotal.WithLabelValues(senderRole, recipientRole).Inc()
}

func IncMessageFlagged() {
	messagesFlaggedTotal.Inc()
}

func IncPolicyDenial(reason string) {
	policyDenialsTotal.WithLabelValues(reason).Inc()
}

func IncMirrorFailure() {
	mirrorFailuresTotal.Inc()
}

func IncWSActive() {
	wsActiveConnections.Inc()
}

func DecWSActive() {
	wsActiveConnections.Dec()
}

func IncWSEvent(event string) {
	wsEventsTotal.WithLabelValues(event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}
