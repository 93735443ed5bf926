package metrics

import "github.com/prometheus/client_golang/prometheus"

var NotificationsAttemptedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_attempted_total",
		Help: "Total number of notification dispatch attempts",
	},
	[]string{"channel", "outcome", "provider"},
)

var NotificationRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_retries_total",
		Help: "Total number of notification retries scheduled",
	},
	[]string{"channel", "reason"},
)

var NotificationTechnicalFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notification_technical_failures_total",
		Help: "Total number of notifications escalated to technical-failure",
	},
	[]string{"channel"},
)

var ProviderSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "provider_send_duration_seconds",
		Help:    "Time taken to call external delivery providers",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"provider", "channel"},
)

var BroadcastEventsCreatedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "broadcast_events_created_total",
		Help: "Total number of broadcast events appended to the audit trail",
	},
	[]string{"message_type"},
)

var BroadcastEligibilityAnomaliesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "broadcast_eligibility_anomalies_total",
		Help: "Broadcast transitions where stubbed and restricted flags disagreed",
	},
)

var QueueTasksProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_tasks_processed_total",
		Help: "Total number of queue tasks picked up by the worker",
	},
	[]string{"kind"},
)

var QueueTaskFailuresTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_task_failures_total",
		Help: "Total number of queue tasks whose handler returned an error",
	},
	[]string{"kind"},
)

var KafkaPublishFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kafka_publish_failure_total",
		Help: "Total number of failed broadcast event publishes",
	},
	[]string{"topic"},
)

var JanitorSweptTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "janitor_swept_total",
		Help: "Notifications swept from sending to technical-failure",
	},
)

func InitAPIMetrics() {
	prometheus.MustRegister(BroadcastEventsCreatedTotal)
	prometheus.MustRegister(BroadcastEligibilityAnomaliesTotal)
}

func InitWorkerMetrics() {
	prometheus.MustRegister(NotificationsAttemptedTotal)
	prometheus.MustRegister(NotificationRetriesTotal)
	prometheus.MustRegister(NotificationTechnicalFailuresTotal)
	prometheus.MustRegister(ProviderSendDuration)
	prometheus.MustRegister(QueueTasksProcessedTotal)
	prometheus.MustRegister(QueueTaskFailuresTotal)
	prometheus.MustRegister(KafkaPublishFailureTotal)
	prometheus.MustRegister(JanitorSweptTotal)
}
