package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "libraryhub"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	derivedStatuses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "borrowing_derivations_total",
			Help:      "Derived borrowing statuses.",
		},
		[]string{"status", "fine_source"},
	)

	backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of REST backend calls.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "outcome"},
	)

	syncTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_tasks_total",
			Help:      "Processed sync tasks by type and result.",
		},
		[]string{"task", "result"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Read-through cache lookups.",
		},
		[]string{"result"},
	)

	botCommands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bot_commands_total",
			Help:      "Telegram bot commands and callbacks by result.",
		},
		[]string{"command", "result"},
	)

	botUpdateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bot_update_processing_seconds",
			Help:      "Time spent processing Telegram updates.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_digests_sent_total",
			Help:      "Telegram reminder digests delivered.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, derivedStatuses, backendDuration, syncTasks, cacheLookups, remindersSent,
			botCommands, botUpdateDuration)
	})
}

func IncHTTP(endpoint string, code int) {
	httpRequests.WithLabelValues(endpoint, statusClass(code)).Inc()
}

func IncDerived(status, fineSource string) {
	derivedStatuses.WithLabelValues(status, fineSource).Inc()
}

func ObserveBackend(method, route string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	backendDuration.WithLabelValues(method, route, outcome).Observe(elapsed.Seconds())
}

func IncSyncTask(task, result string) {
	syncTasks.WithLabelValues(task, result).Inc()
}

func IncCache(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func IncReminder() {
	remindersSent.Inc()
}

func IncBotCommand(command, result string) {
	botCommands.WithLabelValues(command, result).Inc()
}

func ObserveBotUpdate(elapsed time.Duration) {
	botUpdateDuration.Observe(elapsed.Seconds())
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
