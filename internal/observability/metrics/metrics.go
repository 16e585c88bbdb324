package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	SignupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_signups_total",
			Help: "Total number of signup attempts.",
		},
		[]string{"service", "class", "result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"service", "result"},
	)

	CredentialMigrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_credential_migrations_total",
			Help: "Total number of lazy credential rehashes attempted at login.",
		},
		[]string{"service", "result"},
	)

	PasswordResetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_password_resets_total",
			Help: "Total number of password-reset flow operations.",
		},
		[]string{"service", "phase", "result"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_notifications_total",
			Help: "Total number of reset-link delivery attempts.",
		},
		[]string{"service", "result"},
	)
)

func MustRegister(serviceName string) {
	HTTPRequestsTotal = HTTPRequestsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	HTTPRequestDurationSeconds = HTTPRequestDurationSeconds.MustCurryWith(prometheus.Labels{"service": serviceName}).(*prometheus.HistogramVec)
	SignupsTotal = SignupsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	LoginsTotal = LoginsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	CredentialMigrationsTotal = CredentialMigrationsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	PasswordResetsTotal = PasswordResetsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})
	NotificationsTotal = NotificationsTotal.MustCurryWith(prometheus.Labels{"service": serviceName})

	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		SignupsTotal,
		LoginsTotal,
		CredentialMigrationsTotal,
		PasswordResetsTotal,
		NotificationsTotal,
	)
}
