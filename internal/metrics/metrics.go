package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointlab_messages_total",
			Help: "Total number of WhatsApp messages recorded",
		},
		[]string{"direction"},
	)

	providerAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointlab_provider_attempts_total",
			Help: "Total number of content provider attempts",
		},
		[]string{"provider", "model", "outcome"},
	)

	remindersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointlab_reminders_total",
			Help: "Total number of reminder deliveries",
		},
		[]string{"kind", "channel", "outcome"},
	)

	blockedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appointlab_blocked_total",
			Help: "Total number of sends and replies suppressed by the blocklist",
		},
		[]string{"path"},
	)

	sessionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "appointlab_session_state",
			Help: "Current session state (0 unpaired, 1 pairing, 2 ready, 3 disconnected)",
		},
	)

	initOnce sync.Once
)

// Outcomes
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// Init registers the collectors with the default registry
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			messagesTotal,
			providerAttemptsTotal,
			remindersTotal,
			blockedTotal,
			sessionState,
		)
	})
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordMessage(direction string) {
	messagesTotal.WithLabelValues(direction).Inc()
}

func RecordProviderAttempt(provider, model, outcome string) {
	providerAttemptsTotal.WithLabelValues(provider, model, outcome).Inc()
}

func RecordReminder(kind, channel, outcome string) {
	remindersTotal.WithLabelValues(kind, channel, outcome).Inc()
}

func RecordBlocked(path string) {
	blockedTotal.WithLabelValues(path).Inc()
}

func SetSessionState(state int) {
	sessionState.Set(float64(state))
}
